package converter

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/yuanying/epubreader/internal/epub"
)

// InlineImage is an image resource ready to be embedded in markup.
type InlineImage struct {
	DataURI   string `json:"dataUri"`
	MediaType string `json:"mediaType"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// ImageIndex maps image references to inline images. Every image is stored
// under its archive path and under its bare filename. When two images share
// a key the one added last wins.
type ImageIndex struct {
	entries map[string]InlineImage
}

// NewImageIndex returns an empty index.
func NewImageIndex() *ImageIndex {
	return &ImageIndex{entries: make(map[string]InlineImage)}
}

// Add stores img under href and path.Base(href).
func (x *ImageIndex) Add(href string, img InlineImage) {
	x.entries[href] = img
	x.entries[path.Base(href)] = img
}

// Lookup returns the image stored under key.
func (x *ImageIndex) Lookup(key string) (InlineImage, bool) {
	if x == nil || key == "" {
		return InlineImage{}, false
	}
	img, ok := x.entries[key]
	return img, ok
}

// Len returns the number of keys in the index.
func (x *ImageIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// BuildImageIndex reads every image item of the manifest, in document order,
// and encodes it as a data URI. Images that cannot be read are reported and
// left out of the index. A nil optimizer stores the original bytes.
func BuildImageIndex(ctx context.Context, a *epub.Archive, pkg *epub.Package, opt *ImageOptimizer) (*ImageIndex, []error) {
	index := NewImageIndex()
	var errs []error

	for _, item := range pkg.Items() {
		if ctx.Err() != nil {
			break
		}
		if !epub.IsImage(item.MediaType) {
			continue
		}

		data, err := a.ReadFile(item.Href)
		if err != nil {
			errs = append(errs, &epub.StageError{Stage: StageImages, Path: item.Href, Err: err})
			continue
		}

		img := InlineImage{MediaType: item.MediaType}
		if opt != nil {
			optimized, err := opt.Optimize(item.MediaType, data)
			if err != nil {
				errs = append(errs, &epub.StageError{Stage: StageImages, Path: item.Href,
					Err: fmt.Errorf("%w: %w", epub.ErrResourceUnreadable, err)})
				continue
			}
			if optimized.Warning != "" {
				errs = append(errs, &epub.StageError{Stage: StageImages, Path: item.Href,
					Err: fmt.Errorf("kept at original size: %s", optimized.Warning)})
			}
			data = optimized.Data
			img.Width = optimized.Width
			img.Height = optimized.Height
		}

		img.DataURI = dataURI(item.MediaType, data)
		index.Add(item.Href, img)
	}

	return index, errs
}

func dataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// imageCandidate derives one lookup key from an image reference and the
// directory of the chapter that contains it.
type imageCandidate func(ref, chapterDir string) string

// imageCandidates are tried in order; the first key present in the index wins.
var imageCandidates = []imageCandidate{
	// literal
	func(ref, _ string) string { return ref },
	// relative to the chapter
	func(ref, chapterDir string) string { return epub.ResolvePath(chapterDir, ref) },
	// parent segments stripped
	func(ref, _ string) string {
		for strings.HasPrefix(ref, "../") {
			ref = strings.TrimPrefix(ref, "../")
		}
		return ref
	},
	// bare filename
	func(ref, _ string) string { return path.Base(ref) },
}

// ResolveImage maps an image reference found in the chapter at chapterPath to
// an embeddable source. data: references are returned unchanged.
func ResolveImage(ref, chapterPath string, index *ImageIndex) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, "data:") {
		return ref, true
	}

	chapterDir := path.Dir(chapterPath)
	if chapterDir == "." {
		chapterDir = ""
	}

	for _, candidate := range imageCandidates {
		if img, ok := index.Lookup(candidate(ref, chapterDir)); ok {
			return img.DataURI, true
		}
	}
	return "", false
}
