package converter

import (
	"regexp"
	"strings"

	"github.com/yuanying/epubreader/internal/epub"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// ExtractText returns the readable text of a content document with script and
// style removed and whitespace collapsed to single spaces.
func ExtractText(raw string, ph epub.Placeholders) string {
	doc, err := epub.ParseHTML(raw)
	if err != nil {
		return fallbackText(raw, ph)
	}

	doc.Find("script, noscript, style").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return collapseSpace(root.Text())
}

// fallbackText strips tags with a regular expression.
func fallbackText(raw string, ph epub.Placeholders) string {
	if text := collapseSpace(tagPattern.ReplaceAllString(raw, "")); text != "" {
		return text
	}
	return ph.WithDefaults().ContentFailed
}

// collapseSpace replaces runs of Unicode whitespace with one space and trims.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
