package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	defaultJPEGQuality = 85
	minJPEGQuality     = 1
	defaultMaxPixels   = 100 * 1000 * 1000 // 100 megapixels
)

// ImageOptimizer downscales raster images before they are inlined.
// A zero MaxWidth disables resizing; images are then passed through untouched.
type ImageOptimizer struct {
	MaxWidth    int
	JPEGQuality int
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

// OptimizedImage holds the (possibly re-encoded) image data and its dimensions.
// Warning is set when the input was returned as-is because it could not be
// processed. Data is usable in both cases.
type OptimizedImage struct {
	Data    []byte
	Width   int
	Height  int
	Format  string
	Warning string
}

// NewImageOptimizer creates an image optimizer from the parse options.
func NewImageOptimizer(opts ParseOptions) *ImageOptimizer {
	maxWidth := opts.MaxImageWidth
	if maxWidth < 0 {
		maxWidth = 0
	}

	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}
	if quality > 100 {
		quality = 100
	}

	return &ImageOptimizer{
		MaxWidth:    maxWidth,
		JPEGQuality: quality,
		MaxPixels:   defaultMaxPixels,
	}
}

// Optimize measures the image and downscales it when it is wider than MaxWidth.
// The output keeps the input format. SVG is passed through untouched;
// undecodable input (WebP, corrupt data) is passed through with a Warning.
// Only encoding errors are returned.
func (o *ImageOptimizer) Optimize(mediaType string, input []byte) (OptimizedImage, error) {
	out := OptimizedImage{
		Data:   input,
		Format: mediaTypeToFormat(mediaType),
	}
	// Vector images have no pixel width to reduce.
	if strings.EqualFold(mediaType, "image/svg+xml") {
		return out, nil
	}

	cfg, cfgFormat, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}
	out.Width = cfg.Width
	out.Height = cfg.Height
	if out.Format == "" {
		out.Format = strings.ToLower(cfgFormat)
	}

	if o == nil || o.MaxWidth <= 0 || cfg.Width <= o.MaxWidth {
		return out, nil
	}

	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if o.MaxPixels > 0 && pixels > uint64(o.MaxPixels) {
		out.Warning = fmt.Sprintf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
		return out, nil
	}

	if out.Format == "gif" {
		animated, err := isAnimatedGIF(input)
		if err == nil && animated {
			return out, nil
		}
	}

	format, err := imaging.FormatFromExtension(out.Format)
	if err != nil {
		out.Warning = fmt.Sprintf("unsupported image format %q", out.Format)
		return out, nil
	}

	src, err := imaging.Decode(bytes.NewReader(input), imaging.AutoOrientation(true))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}

	resized := imaging.Resize(src, o.MaxWidth, 0, imaging.Lanczos)

	quality := o.JPEGQuality
	if quality < minJPEGQuality {
		quality = defaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(quality)); err != nil {
		return out, fmt.Errorf("failed to encode %s: %w", out.Format, err)
	}

	out.Data = buf.Bytes()
	out.Width = resized.Bounds().Dx()
	out.Height = resized.Bounds().Dy()
	return out, nil
}

func mediaTypeToFormat(mediaType string) string {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	default:
		return ""
	}
}

func isAnimatedGIF(data []byte) (bool, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return len(g.Image) > 1, nil
}
