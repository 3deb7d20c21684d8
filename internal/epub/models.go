package epub

// Package represents the parsed package document (OPF).
type Package struct {
	Path          string // archive path of the package document
	Dir           string // directory prefix used to resolve manifest hrefs
	Version       string
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // manifest ids in document order
	Spine         []SpineItem
	TocID         string // spine@toc
	Guide         []GuideReference
}

// Metadata represents the metadata section of the OPF.
// Every field holds either the first non-empty value found or a placeholder.
type Metadata struct {
	Title       string
	Author      string
	Language    string
	Publisher   string
	Description string
	CoverID     string // EPUB 2.0 cover image manifest item ID (from meta name="cover")
}

// ManifestItem represents an item in the manifest.
type ManifestItem struct {
	ID         string
	Href       string // archive-relative path
	MediaType  string
	Properties []string
}

// HasProperty reports whether the item carries the given properties token.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// SpineItem represents an item reference in the spine.
type SpineItem struct {
	IDRef  string
	Linear bool
}

// GuideReference represents an EPUB 2.0 guide reference.
type GuideReference struct {
	Type  string
	Title string
	Href  string
}

// TocEntry is one node of the table of contents. Each entry owns its children,
// so the outline is a tree and never contains cycles.
type TocEntry struct {
	ID         string     `json:"id"`
	PlayOrder  int        `json:"playOrder"`
	Label      string     `json:"label"`
	TargetPath string     `json:"targetPath"` // fragment-free archive path
	Fragment   string     `json:"fragment,omitempty"`
	Children   []TocEntry `json:"children"`
}

// Items returns the manifest items in document order.
func (p *Package) Items() []ManifestItem {
	items := make([]ManifestItem, 0, len(p.ManifestOrder))
	for _, id := range p.ManifestOrder {
		if item, ok := p.Manifest[id]; ok {
			items = append(items, item)
		}
	}
	return items
}
