package epub

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseNav parses a modern HTML navigation document into a flat outline.
// Every anchor of the toc nav (or the first nav when none is marked) becomes
// one entry.
func ParseNav(text, navPath string, ph Placeholders) ([]TocEntry, error) {
	ph = ph.WithDefaults()
	doc, err := ParseHTML(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTocUnavailable, err)
	}

	nav := findTocNav(doc)
	if nav == nil {
		return nil, fmt.Errorf("%w: nav document has no nav element", ErrTocUnavailable)
	}

	baseDir := dirOf(navPath)
	entries := make([]TocEntry, 0)
	nav.Find("a").Each(func(i int, a *goquery.Selection) {
		label := strings.Join(strings.Fields(a.Text()), " ")
		if label == "" {
			label = ph.ChapterTitle(i + 1)
		}
		href, _ := a.Attr("href")
		p, fragment := splitFragment(strings.TrimSpace(href))

		entries = append(entries, TocEntry{
			ID:         fmt.Sprintf("nav-%d", i),
			PlayOrder:  i + 1,
			Label:      label,
			TargetPath: ResolvePath(baseDir, p),
			Fragment:   fragment,
			Children:   []TocEntry{},
		})
	})

	return entries, nil
}

// findTocNav returns the nav marked epub:type="toc", else the first nav.
func findTocNav(doc *goquery.Document) *goquery.Selection {
	navs := doc.Find("nav")
	if navs.Length() == 0 {
		return nil
	}

	toc := navs.FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, t := range strings.Fields(s.AttrOr("epub:type", "")) {
			if t == "toc" {
				return true
			}
		}
		return false
	})
	if toc.Length() > 0 {
		return toc.First()
	}
	return navs.First()
}
