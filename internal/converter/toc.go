package converter

import (
	"path"
	"strings"

	"github.com/yuanying/epubreader/internal/epub"
)

// MatchTitle finds the label of the first outline entry, depth-first, whose
// target refers to the document at sourcePath. An entry matches when the bare
// filenames are equal or when either path contains the other's filename.
// Entries without a target are skipped, but their children are searched.
func MatchTitle(toc []epub.TocEntry, sourcePath string) (string, bool) {
	filename := path.Base(sourcePath)
	if sourcePath == "" || filename == "." || filename == "/" {
		return "", false
	}
	return matchEntries(toc, filename)
}

func matchEntries(entries []epub.TocEntry, filename string) (string, bool) {
	for _, e := range entries {
		if e.TargetPath != "" {
			tocFilename := path.Base(e.TargetPath)
			if tocFilename == filename ||
				strings.Contains(e.TargetPath, filename) ||
				strings.Contains(filename, tocFilename) {
				return e.Label, true
			}
		}
		if label, ok := matchEntries(e.Children, filename); ok {
			return label, true
		}
	}
	return "", false
}
