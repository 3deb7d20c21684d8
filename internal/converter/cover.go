package converter

import (
	"github.com/yuanying/epubreader/internal/epub"
)

// resolveCover returns the data URI of the book's cover image, if the package
// declares one and the image made it into the index.
func resolveCover(pkg *epub.Package, index *ImageIndex) (string, *epub.CoverInfo) {
	if pkg == nil {
		return "", nil
	}
	info := pkg.DetectCover()
	if info == nil {
		return "", nil
	}
	img, ok := index.Lookup(info.Href)
	if !ok {
		return "", info
	}
	return img.DataURI, info
}
