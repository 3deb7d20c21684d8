package epub

import (
	"strings"
)

// ResolveTOC reads the table of contents, trying the legacy NCX document first
// and the modern nav document second. A book without either yields an empty
// outline and no error. Documents that exist but cannot be used are reported
// and the next format is tried.
func ResolveTOC(a *Archive, pkg *Package, ph Placeholders) ([]TocEntry, []error) {
	var errs []error

	if item, ok := findNCXItem(pkg); ok {
		entries, err := readNCX(a, item, ph)
		if err == nil {
			return entries, errs
		}
		errs = append(errs, stageErr("toc", item.Href, err))
	}

	if item, ok := findNavItem(pkg); ok {
		entries, err := readNav(a, item, ph)
		if err == nil {
			return entries, errs
		}
		errs = append(errs, stageErr("toc", item.Href, err))
	}

	return []TocEntry{}, errs
}

func readNCX(a *Archive, item ManifestItem, ph Placeholders) ([]TocEntry, error) {
	e, ok := a.Entry(item.Href)
	if !ok {
		return nil, ErrTocUnavailable
	}
	content, err := e.Bytes()
	if err != nil {
		return nil, err
	}
	return ParseNCX(content, item.Href, ph)
}

func readNav(a *Archive, item ManifestItem, ph Placeholders) ([]TocEntry, error) {
	e, ok := a.Entry(item.Href)
	if !ok {
		return nil, ErrTocUnavailable
	}
	text, err := e.Text()
	if err != nil {
		return nil, err
	}
	return ParseNav(text, item.Href, ph)
}

// findNCXItem prefers the item named by spine@toc, then the first manifest
// item with the NCX media type.
func findNCXItem(pkg *Package) (ManifestItem, bool) {
	if item, ok := pkg.Manifest[pkg.TocID]; ok && item.MediaType == ncxMediaType {
		return item, true
	}
	for _, item := range pkg.Items() {
		if item.MediaType == ncxMediaType {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// findNavItem prefers the item with properties="nav", then the first
// HTML-like item whose path mentions "nav".
func findNavItem(pkg *Package) (ManifestItem, bool) {
	items := pkg.Items()
	for _, item := range items {
		if item.HasProperty("nav") {
			return item, true
		}
	}
	for _, item := range items {
		if IsHTML(item.MediaType) && strings.Contains(strings.ToLower(item.Href), "nav") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// IsHTML checks if a media type indicates an (X)HTML content document.
func IsHTML(mediaType string) bool {
	return strings.Contains(strings.ToLower(mediaType), "html")
}

// IsImage checks if a media type indicates an image resource.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}
