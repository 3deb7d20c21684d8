package epub

import (
	"errors"
	"fmt"
)

var (
	// ErrArchiveCorrupt is the only fatal condition: the input is not a readable ZIP archive.
	ErrArchiveCorrupt = errors.New("archive corrupt: not a readable ZIP container")

	ErrContainerMalformed = errors.New("container.xml has no rootfile full-path")
	ErrDescriptorMissing  = errors.New("package document not found")
	ErrTocUnavailable     = errors.New("table of contents unavailable")
	ErrResourceUnreadable = errors.New("resource unreadable")
	ErrChapterUnreadable  = errors.New("chapter unreadable")

	ErrMimetypeNotFound  = errors.New("mimetype file not found")
	ErrInvalidMimetype   = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrContainerNotFound = errors.New("META-INF/container.xml not found")
)

// StageError attaches the pipeline stage and archive path to a recovered error.
type StageError struct {
	Stage string
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage, path string, err error) error {
	return &StageError{Stage: stage, Path: path, Err: err}
}
