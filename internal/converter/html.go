package converter

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuanying/epubreader/internal/epub"
)

// inlineImageStyle is applied to every inlined image.
const inlineImageStyle = "max-width: 100%; height: auto; display: block; margin: 1em auto;"

var (
	whitespacePattern  = regexp.MustCompile(`\s+`)
	paragraphBreak     = regexp.MustCompile(`</p>\s*<p>`)
	headingBreak       = regexp.MustCompile(`</(h[1-6])>\s*<p>`)
	divisionBreak      = regexp.MustCompile(`</div>\s*<div>`)
	scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockPattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	imgWithSrcPattern  = regexp.MustCompile(`(?i)<img[^>]*\ssrc\s*=\s*["']([^"']+)["'][^>]*>`)
	imgPattern         = regexp.MustCompile(`(?i)<img[^>]*>`)
)

// NormalizeMarkup reduces a content document to the reader's display subset:
// non-content elements are dropped, images are inlined from index (or replaced
// by a visible placeholder), attributes are stripped and unknown tags renamed.
// The result is the inner markup of body.
func NormalizeMarkup(raw, chapterPath string, index *ImageIndex, ph epub.Placeholders) (string, error) {
	ph = ph.WithDefaults()
	doc, err := epub.ParseHTML(raw)
	if err != nil {
		return "", err
	}

	doc.Find("script, noscript, style, meta, link, head").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	inlineImages(body, chapterPath, index, ph)
	TransformTags(body)

	out, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render markup: %w", err)
	}

	out = whitespacePattern.ReplaceAllString(out, " ")
	out = paragraphBreak.ReplaceAllString(out, "</p>\n<p>")
	out = headingBreak.ReplaceAllString(out, "</$1>\n<p>")
	out = divisionBreak.ReplaceAllString(out, "</div>\n<div>")

	if strings.TrimSpace(out) == "" {
		return "<p>" + html.EscapeString(ph.EmptyContent) + "</p>", nil
	}
	return out, nil
}

// inlineImages rewrites every img below root to an embedded source. Images
// that cannot be resolved are replaced by a placeholder block naming the alt text.
func inlineImages(root *goquery.Selection, chapterPath string, index *ImageIndex, ph epub.Placeholders) {
	root.Find("img").Each(func(i int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if resolved, ok := ResolveImage(src, chapterPath, index); ok {
			s.SetAttr("src", resolved)
			s.SetAttr("style", inlineImageStyle)
			if strings.TrimSpace(s.AttrOr("alt", "")) == "" {
				s.SetAttr("alt", ph.ImageAlt)
			}
			return
		}

		alt := strings.TrimSpace(s.AttrOr("alt", ""))
		if alt == "" {
			alt = ph.ImageAlt
		}
		s.ReplaceWithHtml(imagePlaceholder(alt, ph))
	})
}

func imagePlaceholder(alt string, ph epub.Placeholders) string {
	return "<div><span>" + html.EscapeString(fmt.Sprintf(ph.ImageFailed, alt)) + "</span></div>"
}

// FallbackMarkup is the approximation used when NormalizeMarkup fails: script
// and style blocks are cut out with regular expressions and image sources are
// rewritten in place, or replaced by a short text marker.
func FallbackMarkup(raw, chapterPath string, index *ImageIndex, ph epub.Placeholders) string {
	ph = ph.WithDefaults()
	out := scriptBlockPattern.ReplaceAllString(raw, "")
	out = styleBlockPattern.ReplaceAllString(out, "")

	if index != nil && chapterPath != "" {
		out = imgWithSrcPattern.ReplaceAllStringFunc(out, func(tag string) string {
			src := imgWithSrcPattern.FindStringSubmatch(tag)[1]
			if resolved, ok := ResolveImage(src, chapterPath, index); ok {
				return strings.Replace(tag, src, resolved, 1)
			}
			return ph.ImageText
		})
	}
	// Images without a usable source, or with no index to resolve against.
	out = imgPattern.ReplaceAllStringFunc(out, func(tag string) string {
		if strings.Contains(tag, "data:") {
			return tag
		}
		return "[" + ph.ImageAlt + "]"
	})

	if strings.TrimSpace(out) == "" {
		return "<p>" + html.EscapeString(ph.ContentFailed) + "</p>"
	}
	return out
}
