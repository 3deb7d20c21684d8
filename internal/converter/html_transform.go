package converter

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags are kept as they are; every other element is renamed.
var allowedTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "div": true, "span": true, "br": true,
	"ul": true, "ol": true, "li": true,
	"strong": true, "b": true, "em": true, "i": true,
	"blockquote": true, "img": true,
}

// keptImageAttrs lists the only attributes that survive, on img elements.
var keptImageAttrs = map[string]bool{
	"src":   true,
	"alt":   true,
	"style": true,
}

// TransformTags reduces every element below root to the reader's tag set.
// Attributes are removed (except an image's src, alt and style) and elements
// outside the allow-list become a div when they contain elements, else a span.
func TransformTags(root *goquery.Selection) {
	root.Find("*").Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)
		stripAttributes(node)

		if allowedTags[node.Data] && node.Namespace == "" {
			return
		}
		if s.Children().Length() > 0 {
			renameNode(node, atom.Div)
		} else {
			renameNode(node, atom.Span)
		}
	})
}

func stripAttributes(node *html.Node) {
	if node.Data != "img" {
		node.Attr = nil
		return
	}
	kept := node.Attr[:0]
	for _, attr := range node.Attr {
		if attr.Namespace == "" && keptImageAttrs[attr.Key] {
			kept = append(kept, attr)
		}
	}
	node.Attr = kept
}

// renameNode changes the tag name in place; children stay attached.
func renameNode(node *html.Node, a atom.Atom) {
	node.Data = a.String()
	node.DataAtom = a
	node.Namespace = ""
}
