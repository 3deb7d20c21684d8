package converter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuanying/epubreader/internal/epub"
)

// AssembleChapters turns the spine into chapters, in spine order. Spine ids
// that are missing from the manifest or that are not HTML documents are
// skipped silently; unreadable documents are skipped and reported. The image
// index must be complete before this is called.
//
// Assembly stops early when ctx is cancelled; the caller checks ctx.Err().
func AssembleChapters(ctx context.Context, a *epub.Archive, pkg *epub.Package, toc []epub.TocEntry,
	index *ImageIndex, ph epub.Placeholders, logger *slog.Logger) ([]Chapter, []error) {
	ph = ph.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	chapters := make([]Chapter, 0, len(pkg.Spine))
	var errs []error

	for i, ref := range pkg.Spine {
		if ctx.Err() != nil {
			break
		}

		item, ok := pkg.Manifest[ref.IDRef]
		if !ok {
			logger.Debug("spine item not in manifest, skipping", "idref", ref.IDRef)
			continue
		}
		if !epub.IsHTML(item.MediaType) {
			logger.Debug("spine item is not an HTML document, skipping", "idref", ref.IDRef, "media_type", item.MediaType)
			continue
		}

		raw, err := epub.ReadContent(a, item)
		if err != nil {
			errs = append(errs, &epub.StageError{Stage: StageChapters, Path: item.Href, Err: err})
			continue
		}

		markup, err := NormalizeMarkup(raw, item.Href, index, ph)
		if err != nil {
			errs = append(errs, &epub.StageError{Stage: StageChapters, Path: item.Href,
				Err: fmt.Errorf("failed to normalize markup: %w", err)})
			markup = FallbackMarkup(raw, item.Href, index, ph)
		}

		title, ok := MatchTitle(toc, item.Href)
		if !ok {
			title = ph.ChapterTitle(i + 1)
		}

		chapters = append(chapters, Chapter{
			ID:               ref.IDRef,
			SourcePath:       item.Href,
			Title:            title,
			PlainText:        ExtractText(raw, ph),
			NormalizedMarkup: markup,
			RawMarkup:        raw,
			Order:            len(chapters),
			Linear:           ref.Linear,
		})
	}

	return chapters, errs
}
