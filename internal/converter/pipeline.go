package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/yuanying/epubreader/internal/epub"
)

// Pipeline stages, as they appear in diagnostics and logs.
const (
	StageArchive   = "archive"
	StageContainer = "container"
	StagePackage   = "package"
	StageTOC       = "toc"
	StageImages    = "images"
	StageChapters  = "chapters"
)

// ParseOptions holds options for the parse pipeline.
type ParseOptions struct {
	Logger        *slog.Logger
	MaxImageWidth int // 0 keeps images at their original size
	JPEGQuality   int
	Placeholders  epub.Placeholders
}

// Pipeline parses EPUB archives into Books. It holds only immutable options,
// so one Pipeline may serve concurrent parses.
type Pipeline struct {
	options   ParseOptions
	logger    *slog.Logger
	optimizer *ImageOptimizer
}

// NewPipeline creates a new parse pipeline.
func NewPipeline(opts ParseOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Placeholders = opts.Placeholders.WithDefaults()

	var optimizer *ImageOptimizer
	if opts.MaxImageWidth > 0 {
		optimizer = NewImageOptimizer(opts)
	}

	return &Pipeline{
		options:   opts,
		logger:    logger,
		optimizer: optimizer,
	}
}

// ParseFile reads the file at path and parses it.
func (p *Pipeline) ParseFile(ctx context.Context, path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Parse(ctx, data)
}

// Parse turns the bytes of an EPUB archive into a Book.
//
// Only an unreadable archive fails (ErrArchiveCorrupt). Every later problem is
// recovered: it is logged, recorded in Book.Diagnostics and the stage continues
// with its default (placeholder metadata, empty outline, skipped item). When
// ctx is cancelled Parse returns ctx.Err() and no Book.
func (p *Pipeline) Parse(ctx context.Context, data []byte) (*Book, error) {
	run := &parseRun{
		pipeline: p,
		logger:   p.logger.With("parse_id", uuid.NewString()),
		book:     &Book{},
	}
	return run.execute(ctx, data)
}

// parseRun carries the state of one Parse call.
type parseRun struct {
	pipeline *Pipeline
	logger   *slog.Logger
	book     *Book
}

func (r *parseRun) execute(ctx context.Context, data []byte) (*Book, error) {
	ph := r.pipeline.options.Placeholders
	r.logger.Debug("parse started", "bytes", len(data))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Start -> ArchiveOpened
	archive, err := epub.OpenArchive(data)
	if err != nil {
		r.logger.Error("archive unreadable", "stage", StageArchive, "error", err)
		return nil, err
	}
	if err := archive.CheckMimetype(); err != nil {
		r.record(StageArchive, &epub.StageError{Stage: StageArchive, Path: "mimetype", Err: err})
	}

	// ArchiveOpened -> ContainerRead -> PackageParsed
	pkg := r.readPackage(archive, ph)
	r.book.Title = pkg.Metadata.Title
	r.book.Author = pkg.Metadata.Author
	r.book.Language = pkg.Metadata.Language
	r.book.Publisher = pkg.Metadata.Publisher
	r.book.Description = pkg.Metadata.Description

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// PackageParsed -> TocResolved
	toc, errs := epub.ResolveTOC(archive, pkg, ph)
	r.record(StageTOC, errs...)
	r.book.TOC = toc

	// TocResolved -> ImagesIndexed
	index, errs := BuildImageIndex(ctx, archive, pkg, r.pipeline.optimizer)
	r.record(StageImages, errs...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cover *epub.CoverInfo
	r.book.Cover, cover = resolveCover(pkg, index)
	if cover != nil {
		r.logger.Debug("cover detected", "path", cover.Href, "method", cover.DetectionMethod, "inlined", r.book.Cover != "")
	}

	// ImagesIndexed -> ChaptersAssembled
	chapters, errs := AssembleChapters(ctx, archive, pkg, toc, index, ph, r.logger)
	r.record(StageChapters, errs...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.book.Chapters = chapters

	// ChaptersAssembled -> Done
	r.logger.Info("parse finished",
		"title", r.book.Title,
		"chapters", len(chapters),
		"toc_entries", len(toc),
		"images", index.Len(),
		"diagnostics", len(r.book.Diagnostics))
	return r.book, nil
}

// readPackage locates and parses the package document. Any failure yields an
// empty package carrying placeholder metadata.
func (r *parseRun) readPackage(archive *epub.Archive, ph epub.Placeholders) *epub.Package {
	rootPath, err := epub.ReadContainer(archive)
	if err != nil {
		r.record(StageContainer, &epub.StageError{Stage: StageContainer, Path: "META-INF/container.xml", Err: err})
		return epub.EmptyPackage(ph)
	}

	entry, ok := archive.Entry(rootPath)
	if !ok {
		r.record(StagePackage, &epub.StageError{Stage: StagePackage, Path: rootPath, Err: epub.ErrDescriptorMissing})
		return epub.EmptyPackage(ph)
	}
	content, err := entry.Bytes()
	if err != nil {
		r.record(StagePackage, &epub.StageError{Stage: StagePackage, Path: rootPath,
			Err: fmt.Errorf("%w: %w", epub.ErrDescriptorMissing, err)})
		return epub.EmptyPackage(ph)
	}

	pkg, errs := epub.ParsePackage(content, rootPath, ph)
	r.record(StagePackage, errs...)
	r.logger.Debug("package parsed",
		"path", rootPath,
		"version", pkg.Version,
		"manifest_items", len(pkg.Manifest),
		"spine_items", len(pkg.Spine))
	return pkg
}

// record logs recovered errors and appends them to the book's diagnostics.
func (r *parseRun) record(stage string, errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		d := newDiagnostic(stage, err)
		r.book.Diagnostics = append(r.book.Diagnostics, d)
		r.logger.Warn(d.Message, "stage", d.Stage, "path", d.Path)
	}
}
