package converter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/yuanying/epubreader/internal/epub"
)

type testFile struct {
	name    string
	content []byte
}

func textFile(name, content string) testFile {
	return testFile{name: name, content: []byte(content)}
}

// buildTestEPUB creates an in-memory ZIP archive from the given files, in order.
func buildTestEPUB(t *testing.T, files ...testFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		method := zip.Deflate
		if f.name == "mimetype" {
			method = zip.Store
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: f.name, Method: method})
		if err != nil {
			t.Fatalf("failed to create %s: %v", f.name, err)
		}
		if _, err := fw.Write(f.content); err != nil {
			t.Fatalf("failed to write %s: %v", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// testBook describes a small EPUB 2 book rooted at OEBPS/.
type testBook struct {
	title    string
	chapters []testChapter
	images   map[string][]byte // OEBPS-relative href -> bytes
	coverID  string
	withNCX  bool
}

type testChapter struct {
	id    string
	href  string // OEBPS-relative
	label string // NCX label, empty for none
	body  string
}

func (b testBook) build(t *testing.T) []byte {
	t.Helper()

	var manifest, spine, navPoints strings.Builder
	files := []testFile{
		textFile("mimetype", "application/epub+zip"),
		textFile("META-INF/container.xml", testContainerXML),
	}

	for i, ch := range b.chapters {
		fmt.Fprintf(&manifest, `<item id="%s" href="%s" media-type="application/xhtml+xml"/>`+"\n", ch.id, ch.href)
		fmt.Fprintf(&spine, `<itemref idref="%s"/>`+"\n", ch.id)
		if ch.label != "" {
			fmt.Fprintf(&navPoints, `<navPoint id="np%d" playOrder="%d"><navLabel><text>%s</text></navLabel><content src="%s"/></navPoint>`+"\n",
				i+1, i+1, ch.label, ch.href)
		}
		files = append(files, textFile("OEBPS/"+ch.href,
			`<?xml version="1.0" encoding="UTF-8"?><html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head><body>`+
				ch.body+`</body></html>`))
	}

	n := 0
	for href, data := range b.images {
		id := fmt.Sprintf("img%d", n)
		if strings.Contains(href, "cover") && b.coverID != "" {
			id = b.coverID
		}
		n++
		fmt.Fprintf(&manifest, `<item id="%s" href="%s" media-type="%s"/>`+"\n", id, href, imageMediaType(href))
		files = append(files, testFile{name: "OEBPS/" + href, content: data})
	}

	tocAttr := ""
	if b.withNCX {
		manifest.WriteString(`<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
		tocAttr = ` toc="ncx"`
		files = append(files, textFile("OEBPS/toc.ncx",
			`<?xml version="1.0" encoding="UTF-8"?><ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1"><navMap>`+
				navPoints.String()+`</navMap></ncx>`))
	}

	coverMeta := ""
	if b.coverID != "" {
		coverMeta = fmt.Sprintf(`<meta name="cover" content="%s"/>`, b.coverID)
	}

	opf := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>%s</dc:title>
    <dc:creator>Test Author</dc:creator>
    <dc:language>en</dc:language>
    %s
  </metadata>
  <manifest>
%s  </manifest>
  <spine%s>
%s  </spine>
</package>`, b.title, coverMeta, manifest.String(), tocAttr, spine.String())

	files = append(files, textFile("OEBPS/content.opf", opf))
	return buildTestEPUB(t, files...)
}

func imageMediaType(href string) string {
	switch {
	case strings.HasSuffix(href, ".png"):
		return "image/png"
	case strings.HasSuffix(href, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	return mustEncodePNG(t, makeSolidNRGBA(w, h, color.NRGBA{R: 200, G: 10, B: 10, A: 255}))
}

func openTestArchive(t *testing.T, files ...testFile) *epub.Archive {
	t.Helper()
	a, err := epub.OpenArchive(buildTestEPUB(t, files...))
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}
	return a
}

// indexWith builds an index holding a fake image under each href.
func indexWith(hrefs ...string) *ImageIndex {
	index := NewImageIndex()
	for _, href := range hrefs {
		index.Add(href, InlineImage{DataURI: "data:image/png;base64," + href, MediaType: "image/png"})
	}
	return index
}
