package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// XMLDocument is a parsed XML document (container.xml, OPF, NCX).
type XMLDocument struct {
	root *xmlquery.Node
}

// XMLNode is an element of an XMLDocument.
type XMLNode struct {
	node *xmlquery.Node
}

var xmlEncodingPattern = regexp.MustCompile(`^\s*<\?xml[^>]*encoding=["']([^"']+)["']`)

// xmlOptions configures a lenient decoder: undeclared namespace prefixes are
// accepted and HTML named entities (&nbsp;, &aacute;, ...) are understood.
var xmlOptions = xmlquery.ParserOptions{
	Decoder: &xmlquery.DecoderOptions{
		Strict:        false,
		Entity:        xml.HTMLEntity,
		CharsetReader: charset.NewReaderLabel,
	},
}

// ParseXML parses XML markup. It never returns a nil document: on malformed
// input the returned document is empty and err describes the failure.
func ParseXML(data []byte) (*XMLDocument, error) {
	root, err := xmlquery.ParseWithOptions(bytes.NewReader(stripBOM(data)), xmlOptions)
	if err != nil {
		return &XMLDocument{root: &xmlquery.Node{Type: xmlquery.DocumentNode}}, fmt.Errorf("failed to parse XML: %w", err)
	}
	return &XMLDocument{root: root}, nil
}

// ParseHTML parses HTML or XHTML markup. Like ParseXML it always returns a
// usable document.
func ParseHTML(text string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode}), fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Find returns all nodes matching the XPath expression.
func (d *XMLDocument) Find(expr string) []*XMLNode {
	return queryAll(d.root, expr)
}

// FindOne returns the first node matching the XPath expression, or nil.
func (d *XMLDocument) FindOne(expr string) *XMLNode {
	return queryOne(d.root, expr)
}

// Find returns all nodes matching expr relative to n.
func (n *XMLNode) Find(expr string) []*XMLNode {
	return queryAll(n.node, expr)
}

// FindOne returns the first node matching expr relative to n, or nil.
func (n *XMLNode) FindOne(expr string) *XMLNode {
	return queryOne(n.node, expr)
}

// Children returns the element children of n whose local name is name.
// An empty name matches every element child.
func (n *XMLNode) Children(name string) []*XMLNode {
	var out []*XMLNode
	for c := n.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if name == "" || c.Data == name {
			out = append(out, &XMLNode{node: c})
		}
	}
	return out
}

// Descendants returns every element below n in document order.
func (n *XMLNode) Descendants() []*XMLNode {
	var out []*XMLNode
	var walk func(*xmlquery.Node)
	walk = func(p *xmlquery.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode {
				out = append(out, &XMLNode{node: c})
				walk(c)
			}
		}
	}
	walk(n.node)
	return out
}

// LocalName returns the element name without prefix.
func (n *XMLNode) LocalName() string { return n.node.Data }

// Prefix returns the namespace prefix as written in the document.
func (n *XMLNode) Prefix() string { return n.node.Prefix }

// NamespaceURI returns the resolved namespace of the element.
func (n *XMLNode) NamespaceURI() string { return n.node.NamespaceURI }

// Text returns the trimmed text content of the node and its descendants.
func (n *XMLNode) Text() string {
	return strings.TrimSpace(n.node.InnerText())
}

// Attr returns the value of the unprefixed attribute name. The lookup falls
// back to a case-insensitive match ("playorder" vs "playOrder").
func (n *XMLNode) Attr(name string) string {
	for _, a := range n.node.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	for _, a := range n.node.Attr {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

func queryAll(top *xmlquery.Node, expr string) []*XMLNode {
	if top == nil {
		return nil
	}
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil
	}
	nodes := xmlquery.QuerySelectorAll(top, compiled)
	out := make([]*XMLNode, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == xmlquery.ElementNode {
			out = append(out, &XMLNode{node: n})
		}
	}
	return out
}

func queryOne(top *xmlquery.Node, expr string) *XMLNode {
	nodes := queryAll(top, expr)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// stripBOM removes a leading UTF-8 BOM, if present.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// decodeText converts entry contents to a UTF-8 string. Valid UTF-8 is used
// as-is; otherwise the XML declaration or HTML meta charset selects the decoder.
func decodeText(data []byte) string {
	data = stripBOM(data)
	if utf8.Valid(data) {
		return string(data)
	}

	if m := xmlEncodingPattern.FindSubmatch(data); m != nil {
		if enc, _ := charset.Lookup(string(m[1])); enc != nil {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(out)
			}
		}
	}

	enc, _, _ := charset.DetermineEncoding(data, "")
	if out, err := enc.NewDecoder().Bytes(data); err == nil {
		return string(out)
	}
	return strings.ToValidUTF8(string(data), "�")
}
