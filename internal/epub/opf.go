package epub

import (
	"fmt"
	"strings"
)

const dcNamespace = "http://purl.org/dc/elements/1.1/"

// metadataVariant picks one candidate element for a Dublin Core field.
type metadataVariant func(n *XMLNode, field string) bool

// metadataVariants are tried in order; the first non-empty match wins.
var metadataVariants = []metadataVariant{
	// dc:title
	func(n *XMLNode, field string) bool {
		return n.Prefix() == "dc" && n.LocalName() == field
	},
	// <title xmlns="http://purl.org/dc/elements/1.1/">
	func(n *XMLNode, field string) bool {
		return n.NamespaceURI() == dcNamespace && n.LocalName() == field
	},
	// any element with that local name
	func(n *XMLNode, field string) bool {
		return n.LocalName() == field
	},
}

// ParsePackage parses the package document found at pkgPath. Manifest hrefs
// are resolved against the package document's directory.
//
// Malformed items are skipped and reported in the returned error slice; the
// returned Package is never nil.
func ParsePackage(content []byte, pkgPath string, ph Placeholders) (*Package, []error) {
	ph = ph.WithDefaults()
	pkg := &Package{
		Path:     pkgPath,
		Dir:      dirOf(pkgPath),
		Manifest: make(map[string]ManifestItem),
	}

	var errs []error
	doc, err := ParseXML(content)
	if err != nil {
		errs = append(errs, stageErr("package", pkgPath, err))
	}

	if root := doc.FindOne("/*[local-name()='package']"); root != nil {
		pkg.Version = root.Attr("version")
	}

	pkg.Metadata = parseMetadata(doc.FindOne("//*[local-name()='metadata']"), ph)

	// Parse manifest
	for _, item := range doc.Find("//*[local-name()='manifest']/*[local-name()='item']") {
		id := strings.TrimSpace(item.Attr("id"))
		href := strings.TrimSpace(item.Attr("href"))
		if id == "" || href == "" {
			errs = append(errs, stageErr("package", pkgPath, fmt.Errorf("manifest item missing id or href (id=%q href=%q)", id, href)))
			continue
		}
		mediaType := strings.TrimSpace(item.Attr("media-type"))
		if mediaType == "" {
			mediaType = "unknown"
		}

		manifestItem := ManifestItem{
			ID:         id,
			Href:       ResolvePath(pkg.Dir, href),
			MediaType:  mediaType,
			Properties: strings.Fields(item.Attr("properties")),
		}
		if _, dup := pkg.Manifest[id]; !dup {
			pkg.ManifestOrder = append(pkg.ManifestOrder, id)
		}
		pkg.Manifest[id] = manifestItem
	}

	// Parse spine
	if spine := doc.FindOne("//*[local-name()='spine']"); spine != nil {
		pkg.TocID = strings.TrimSpace(spine.Attr("toc"))
		for _, itemRef := range spine.Children("itemref") {
			idref := strings.TrimSpace(itemRef.Attr("idref"))
			if idref == "" {
				errs = append(errs, stageErr("package", pkgPath, fmt.Errorf("spine itemref missing idref")))
				continue
			}
			pkg.Spine = append(pkg.Spine, SpineItem{
				IDRef:  idref,
				Linear: itemRef.Attr("linear") != "no",
			})
		}
	}

	// Parse guide
	for _, ref := range doc.Find("//*[local-name()='guide']/*[local-name()='reference']") {
		href := strings.TrimSpace(ref.Attr("href"))
		if href == "" {
			continue
		}
		pkg.Guide = append(pkg.Guide, GuideReference{
			Type:  ref.Attr("type"),
			Title: ref.Attr("title"),
			Href:  ResolvePath(pkg.Dir, href),
		})
	}

	return pkg, errs
}

// EmptyPackage returns the package used when no package document could be read.
func EmptyPackage(ph Placeholders) *Package {
	return &Package{
		Metadata: parseMetadata(nil, ph.WithDefaults()),
		Manifest: make(map[string]ManifestItem),
	}
}

// parseMetadata extracts the metadata fields, substituting placeholders.
func parseMetadata(meta *XMLNode, ph Placeholders) Metadata {
	md := Metadata{
		Title:       metadataValue(meta, "title", ph.Title),
		Author:      metadataValue(meta, "creator", ph.Author),
		Language:    metadataValue(meta, "language", ph.Language),
		Publisher:   metadataValue(meta, "publisher", ph.Publisher),
		Description: metadataValue(meta, "description", ph.Description),
	}

	if meta != nil {
		// EPUB 2.0 cover meta element
		for _, m := range meta.Children("meta") {
			if m.Attr("name") == "cover" && m.Attr("content") != "" {
				md.CoverID = m.Attr("content")
				break
			}
		}
	}

	return md
}

// metadataValue returns the first non-empty value of field, trying each
// variant in order, or placeholder when nothing matches.
func metadataValue(meta *XMLNode, field, placeholder string) string {
	if meta == nil {
		return placeholder
	}
	elements := meta.Descendants()
	for _, variant := range metadataVariants {
		for _, el := range elements {
			if !variant(el, field) {
				continue
			}
			if v := el.Text(); v != "" {
				return v
			}
		}
	}
	return placeholder
}
