package epub

import (
	"path"
	"strings"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Href            string
	MediaType       string
	DetectionMethod string // "properties", "meta", "guide", "filename"
}

// DetectCover finds the cover image in the manifest. Methods in priority order:
//  1. properties="cover-image" (EPUB 3.0)
//  2. meta name="cover" (EPUB 2.0)
//  3. guide type="cover" pointing at an image item
//  4. an image whose basename contains "cover"
//
// Returns nil if no cover image is found.
func (p *Package) DetectCover() *CoverInfo {
	items := p.Items()

	for _, item := range items {
		if item.HasProperty("cover-image") {
			return newCoverInfo(item, "properties")
		}
	}

	if p.Metadata.CoverID != "" {
		if item, ok := p.Manifest[p.Metadata.CoverID]; ok && IsImage(item.MediaType) {
			return newCoverInfo(item, "meta")
		}
	}

	for _, ref := range p.Guide {
		if ref.Type != "cover" {
			continue
		}
		href, _ := splitFragment(ref.Href)
		for _, item := range items {
			if IsImage(item.MediaType) && item.Href == href {
				return newCoverInfo(item, "guide")
			}
		}
	}

	for _, item := range items {
		if !IsImage(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(item.Href)), "cover") {
			return newCoverInfo(item, "filename")
		}
	}

	return nil
}

func newCoverInfo(item ManifestItem, method string) *CoverInfo {
	return &CoverInfo{
		ManifestID:      item.ID,
		Href:            item.Href,
		MediaType:       item.MediaType,
		DetectionMethod: method,
	}
}
