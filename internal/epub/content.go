package epub

import (
	"fmt"
	"path"
	"strings"
)

// ReadContent reads the markup of a content document as UTF-8 text.
// Failures wrap ErrChapterUnreadable.
func ReadContent(a *Archive, item ManifestItem) (string, error) {
	e, ok := a.Entry(item.Href)
	if !ok {
		return "", fmt.Errorf("%w: %s not found in archive", ErrChapterUnreadable, item.Href)
	}
	text, err := e.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChapterUnreadable, err)
	}
	return text, nil
}

// ResolvePath resolves a document-relative reference against baseDir, the
// directory of the referencing document. Empty references and absolute URLs
// are returned unchanged.
func ResolvePath(baseDir, ref string) string {
	if ref == "" || strings.Contains(ref, "://") {
		return ref
	}
	return path.Clean(path.Join(baseDir, ref))
}
