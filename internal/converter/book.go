package converter

import (
	"errors"

	"github.com/yuanying/epubreader/internal/epub"
)

// Book is the result of a parse: metadata, chapters in reading order and the
// table of contents. Diagnostics lists every recovered problem.
type Book struct {
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Language    string          `json:"language"`
	Publisher   string          `json:"publisher"`
	Description string          `json:"description"`
	Cover       string          `json:"cover,omitempty"` // data URI
	Chapters    []Chapter       `json:"chapters"`
	TOC         []epub.TocEntry `json:"toc"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
}

// Chapter is one spine document in three renditions.
type Chapter struct {
	ID               string `json:"id"`
	SourcePath       string `json:"sourcePath"`
	Title            string `json:"title"`
	PlainText        string `json:"plainText"`
	NormalizedMarkup string `json:"normalizedMarkup"`
	RawMarkup        string `json:"rawMarkup"`
	Order            int    `json:"order"`
	Linear           bool   `json:"linear"` // false for auxiliary content (spine linear="no")
}

// Diagnostic records a problem the parser recovered from.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func newDiagnostic(stage string, err error) Diagnostic {
	d := Diagnostic{Stage: stage, Message: err.Error()}
	var se *epub.StageError
	if errors.As(err, &se) {
		d.Stage = se.Stage
		d.Path = se.Path
		d.Message = se.Err.Error()
	}
	return d
}
