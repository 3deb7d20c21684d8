package epub

import (
	"errors"
	"testing"
)

const tocTestNCX = `<ncx><navMap>
<navPoint id="n1" playOrder="1"><navLabel><text>From NCX</text></navLabel><content src="ch1.xhtml"/></navPoint>
</navMap></ncx>`

const tocTestNav = `<html><body><nav epub:type="toc"><ol><li><a href="ch1.xhtml">From Nav</a></li></ol></nav></body></html>`

func tocTestPackage(items ...ManifestItem) *Package {
	pkg := &Package{Manifest: make(map[string]ManifestItem)}
	for _, item := range items {
		pkg.Manifest[item.ID] = item
		pkg.ManifestOrder = append(pkg.ManifestOrder, item.ID)
	}
	return pkg
}

func TestResolveTOC(t *testing.T) {
	ncxItem := ManifestItem{ID: "ncx", Href: "OEBPS/toc.ncx", MediaType: "application/x-dtbncx+xml"}
	navItem := ManifestItem{ID: "nav", Href: "OEBPS/nav.xhtml", MediaType: "application/xhtml+xml", Properties: []string{"nav"}}
	hintItem := ManifestItem{ID: "toc", Href: "OEBPS/navigation.xhtml", MediaType: "application/xhtml+xml"}

	tests := []struct {
		name      string
		files     []testFile
		pkg       *Package
		wantLabel string
		wantErrs  int
	}{
		{
			name: "NCX preferred over nav",
			files: []testFile{
				{name: "OEBPS/toc.ncx", content: tocTestNCX},
				{name: "OEBPS/nav.xhtml", content: tocTestNav},
			},
			pkg:       tocTestPackage(navItem, ncxItem),
			wantLabel: "From NCX",
		},
		{
			name:      "nav by properties",
			files:     []testFile{{name: "OEBPS/nav.xhtml", content: tocTestNav}},
			pkg:       tocTestPackage(navItem),
			wantLabel: "From Nav",
		},
		{
			name:      "nav by path hint",
			files:     []testFile{{name: "OEBPS/navigation.xhtml", content: tocTestNav}},
			pkg:       tocTestPackage(hintItem),
			wantLabel: "From Nav",
		},
		{
			name: "broken NCX falls through to nav",
			files: []testFile{
				{name: "OEBPS/toc.ncx", content: "<<<"},
				{name: "OEBPS/nav.xhtml", content: tocTestNav},
			},
			pkg:       tocTestPackage(ncxItem, navItem),
			wantLabel: "From Nav",
			wantErrs:  1,
		},
		{
			name:     "NCX declared but missing from archive",
			files:    []testFile{{name: "other.txt", content: "x"}},
			pkg:      tocTestPackage(ncxItem),
			wantErrs: 1,
		},
		{
			name:  "no toc at all",
			files: []testFile{{name: "other.txt", content: "x"}},
			pkg:   tocTestPackage(ManifestItem{ID: "c1", Href: "c1.xhtml", MediaType: "application/xhtml+xml"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := OpenArchive(buildTestEPUB(t, tt.files...))
			if err != nil {
				t.Fatalf("OpenArchive() error = %v", err)
			}

			entries, errs := ResolveTOC(a, tt.pkg, EnglishPlaceholders)
			if len(errs) != tt.wantErrs {
				t.Errorf("ResolveTOC() errs = %v, want %d", errs, tt.wantErrs)
			}
			for _, err := range errs {
				if !errors.Is(err, ErrTocUnavailable) {
					t.Errorf("error %v should wrap ErrTocUnavailable", err)
				}
			}
			if entries == nil {
				t.Fatal("ResolveTOC() returned nil outline")
			}
			if tt.wantLabel == "" {
				if len(entries) != 0 {
					t.Errorf("entries = %+v, want empty", entries)
				}
				return
			}
			if len(entries) != 1 || entries[0].Label != tt.wantLabel {
				t.Errorf("entries = %+v, want label %q", entries, tt.wantLabel)
			}
		})
	}
}

func TestResolveTOC_SpineTocAttribute(t *testing.T) {
	first := ManifestItem{ID: "old", Href: "old.ncx", MediaType: "application/x-dtbncx+xml"}
	second := ManifestItem{ID: "real", Href: "real.ncx", MediaType: "application/x-dtbncx+xml"}
	pkg := tocTestPackage(first, second)
	pkg.TocID = "real"

	a, err := OpenArchive(buildTestEPUB(t,
		testFile{name: "old.ncx", content: `<ncx><navMap><navPoint><navLabel><text>Old</text></navLabel></navPoint></navMap></ncx>`},
		testFile{name: "real.ncx", content: `<ncx><navMap><navPoint><navLabel><text>Real</text></navLabel></navPoint></navMap></ncx>`},
	))
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}

	entries, _ := ResolveTOC(a, pkg, EnglishPlaceholders)
	if len(entries) != 1 || entries[0].Label != "Real" {
		t.Errorf("entries = %+v, want the spine@toc document", entries)
	}
}
