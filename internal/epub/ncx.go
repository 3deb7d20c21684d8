package epub

import (
	"fmt"
	"strconv"
	"strings"
)

const ncxMediaType = "application/x-dtbncx+xml"

// ParseNCX parses a legacy navigation control document. Hrefs are resolved
// against the directory of ncxPath.
func ParseNCX(content []byte, ncxPath string, ph Placeholders) ([]TocEntry, error) {
	ph = ph.WithDefaults()
	doc, err := ParseXML(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTocUnavailable, err)
	}

	navMap := doc.FindOne("//*[local-name()='navMap']")
	if navMap == nil {
		return nil, fmt.Errorf("%w: NCX has no navMap", ErrTocUnavailable)
	}

	return convertNavPoints(navMap.Children("navPoint"), dirOf(ncxPath), ph), nil
}

// convertNavPoints recursively converts navPoint elements in document order.
// The result is never nil.
func convertNavPoints(points []*XMLNode, baseDir string, ph Placeholders) []TocEntry {
	entries := make([]TocEntry, 0, len(points))
	for _, np := range points {
		entries = append(entries, convertNavPoint(np, baseDir, ph))
	}
	return entries
}

func convertNavPoint(np *XMLNode, baseDir string, ph Placeholders) TocEntry {
	entry := TocEntry{
		ID:        strings.TrimSpace(np.Attr("id")),
		PlayOrder: parsePlayOrder(np.Attr("playOrder")),
		Label:     ph.UnknownChapter,
	}
	if entry.ID == "" {
		entry.ID = "unknown"
	}

	if text := np.FindOne("./*[local-name()='navLabel']/*[local-name()='text']"); text != nil {
		if label := text.Text(); label != "" {
			entry.Label = label
		}
	}

	if content := np.FindOne("./*[local-name()='content']"); content != nil {
		p, fragment := splitFragment(strings.TrimSpace(content.Attr("src")))
		entry.TargetPath = ResolvePath(baseDir, p)
		entry.Fragment = fragment
	}

	entry.Children = convertNavPoints(np.Children("navPoint"), baseDir, ph)
	return entry
}

// parsePlayOrder returns the play order, or 0 when missing, invalid or negative.
func parsePlayOrder(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (path, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	path = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return path, fragment
}
