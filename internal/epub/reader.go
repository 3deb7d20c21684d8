package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
)

// maxEntrySize bounds the decompressed size of a single entry (zip bomb guard).
const maxEntrySize int64 = 256 * 1024 * 1024

const expectedMimetype = "application/epub+zip"

// Archive provides named-entry access to an EPUB container held in memory.
// Entries are decompressed only when read.
type Archive struct {
	zipReader *zip.Reader
	files     map[string]*zip.File
	lower     map[string]*zip.File
}

// Entry is a lazy accessor for one archive entry.
type Entry struct {
	Name string
	file *zip.File
}

// OpenArchive opens an EPUB container from raw bytes.
// It fails with ErrArchiveCorrupt only when the bytes are not a ZIP archive.
func OpenArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}

	a := &Archive{
		zipReader: zr,
		files:     make(map[string]*zip.File, len(zr.File)),
		lower:     make(map[string]*zip.File, len(zr.File)),
	}

	// Build file map with normalized paths; first entry wins on duplicates
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		if _, exists := a.files[name]; !exists {
			a.files[name] = f
		}
		low := strings.ToLower(name)
		if _, exists := a.lower[low]; !exists {
			a.lower[low] = f
		}
	}

	return a, nil
}

// Entry looks up an entry by path. It tries the exact path, the percent-decoded
// path, then a case-insensitive match.
func (a *Archive) Entry(name string) (*Entry, bool) {
	name = normalizePath(name)
	if f, ok := a.files[name]; ok {
		return &Entry{Name: name, file: f}, true
	}
	if decoded, err := url.PathUnescape(name); err == nil && decoded != name {
		if f, ok := a.files[decoded]; ok {
			return &Entry{Name: decoded, file: f}, true
		}
		name = decoded
	}
	if f, ok := a.lower[strings.ToLower(name)]; ok {
		return &Entry{Name: normalizePath(f.Name), file: f}, true
	}
	return nil, false
}

// ReadFile reads the contents of an entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	e, ok := a.Entry(name)
	if !ok {
		return nil, fmt.Errorf("file not found: %s: %w", name, ErrResourceUnreadable)
	}
	return e.Bytes()
}

// Names returns all entry names in sorted order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bytes decompresses and returns the entry contents.
func (e *Entry) Bytes() ([]byte, error) {
	if e.file.UncompressedSize64 > uint64(maxEntrySize) {
		return nil, fmt.Errorf("entry %s exceeds %d bytes: %w", e.Name, maxEntrySize, ErrResourceUnreadable)
	}

	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", e.Name, ErrResourceUnreadable)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %v: %w", e.Name, err, ErrResourceUnreadable)
	}
	if int64(len(data)) > maxEntrySize {
		return nil, fmt.Errorf("entry %s exceeds %d bytes: %w", e.Name, maxEntrySize, ErrResourceUnreadable)
	}
	return data, nil
}

// Text returns the entry contents decoded to UTF-8.
func (e *Entry) Text() (string, error) {
	data, err := e.Bytes()
	if err != nil {
		return "", err
	}
	return decodeText(data), nil
}

// CheckMimetype validates the mimetype entry. A bad mimetype does not stop parsing.
func (a *Archive) CheckMimetype() error {
	e, ok := a.Entry("mimetype")
	if !ok {
		return ErrMimetypeNotFound
	}
	content, err := e.Bytes()
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}
	if strings.TrimSpace(string(content)) != expectedMimetype {
		return ErrInvalidMimetype
	}
	return nil
}

// ReadContainer parses META-INF/container.xml and returns the path of the
// first rootfile declaration.
func ReadContainer(a *Archive) (string, error) {
	e, ok := a.Entry("META-INF/container.xml")
	if !ok {
		return "", fmt.Errorf("%w: %w", ErrContainerMalformed, ErrContainerNotFound)
	}
	content, err := e.Bytes()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrContainerMalformed, err)
	}

	doc, err := ParseXML(content)
	rootfile := doc.FindOne("//*[local-name()='rootfile']")
	if rootfile == nil {
		if err != nil {
			return "", fmt.Errorf("%w: failed to parse container.xml: %v", ErrContainerMalformed, err)
		}
		return "", ErrContainerMalformed
	}

	fullPath := normalizePath(strings.TrimSpace(rootfile.Attr("full-path")))
	if fullPath == "" {
		return "", ErrContainerMalformed
	}
	return fullPath, nil
}

// normalizePath normalizes archive paths (removes ./ and leading / prefixes).
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return p
}

// dirOf returns the directory of an archive path with a trailing slash, or "".
func dirOf(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir + "/"
}
