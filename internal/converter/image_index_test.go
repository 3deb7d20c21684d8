package converter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yuanying/epubreader/internal/epub"
)

func TestResolveImage(t *testing.T) {
	index := indexWith("OEBPS/images/fig1.png", "OEBPS/Text/local.png", "shared/only-name.gif")

	tests := []struct {
		name        string
		ref         string
		chapterPath string
		wantKey     string
		wantOK      bool
	}{
		{name: "literal archive path", ref: "OEBPS/images/fig1.png", chapterPath: "OEBPS/Text/c.xhtml", wantKey: "OEBPS/images/fig1.png", wantOK: true},
		{name: "relative to chapter", ref: "../images/fig1.png", chapterPath: "OEBPS/Text/c.xhtml", wantKey: "OEBPS/images/fig1.png", wantOK: true},
		{name: "same directory", ref: "local.png", chapterPath: "OEBPS/Text/c.xhtml", wantKey: "OEBPS/Text/local.png", wantOK: true},
		{name: "bare filename", ref: "../../elsewhere/only-name.gif", chapterPath: "OEBPS/Text/c.xhtml", wantKey: "shared/only-name.gif", wantOK: true},
		{name: "root chapter", ref: "OEBPS/Text/local.png", chapterPath: "c.xhtml", wantKey: "OEBPS/Text/local.png", wantOK: true},
		{name: "unknown", ref: "../images/missing.png", chapterPath: "OEBPS/Text/c.xhtml"},
		{name: "empty", ref: "  ", chapterPath: "OEBPS/Text/c.xhtml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveImage(tt.ref, tt.chapterPath, index)
			if ok != tt.wantOK {
				t.Fatalf("ResolveImage(%q) ok = %v, want %v", tt.ref, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			want, _ := index.Lookup(tt.wantKey)
			if got != want.DataURI {
				t.Errorf("ResolveImage(%q) = %q, want %q", tt.ref, got, want.DataURI)
			}
		})
	}
}

func TestResolveImage_DataURIPassThrough(t *testing.T) {
	ref := "data:image/gif;base64,R0lGODlhAQABAAAAACw="
	got, ok := ResolveImage(ref, "c.xhtml", nil)
	if !ok || got != ref {
		t.Errorf("ResolveImage(data:) = %q, %v", got, ok)
	}
}

func TestImageIndex_LastWriteWins(t *testing.T) {
	index := NewImageIndex()
	index.Add("a/pic.png", InlineImage{DataURI: "first"})
	index.Add("b/pic.png", InlineImage{DataURI: "second"})

	if img, _ := index.Lookup("pic.png"); img.DataURI != "second" {
		t.Errorf("Lookup(pic.png) = %q, want the later image", img.DataURI)
	}
	if img, _ := index.Lookup("a/pic.png"); img.DataURI != "first" {
		t.Errorf("Lookup(a/pic.png) = %q, want first", img.DataURI)
	}
	if index.Len() != 3 {
		t.Errorf("Len() = %d, want 3", index.Len())
	}
}

func TestBuildImageIndex(t *testing.T) {
	png := testPNG(t, 40, 20)
	a := openTestArchive(t,
		testFile{name: "OEBPS/images/a.png", content: png},
		textFile("OEBPS/text/c.xhtml", "<p/>"),
	)

	pkg := &epub.Package{
		Manifest: map[string]epub.ManifestItem{
			"a":    {ID: "a", Href: "OEBPS/images/a.png", MediaType: "image/png"},
			"gone": {ID: "gone", Href: "OEBPS/images/gone.jpg", MediaType: "image/jpeg"},
			"c":    {ID: "c", Href: "OEBPS/text/c.xhtml", MediaType: "application/xhtml+xml"},
		},
		ManifestOrder: []string{"c", "gone", "a"},
	}

	index, errs := BuildImageIndex(context.Background(), a, pkg, NewImageOptimizer(ParseOptions{MaxImageWidth: 10}))
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one unreadable image", errs)
	}
	if !errors.Is(errs[0], epub.ErrResourceUnreadable) {
		t.Errorf("error %v should wrap ErrResourceUnreadable", errs[0])
	}

	img, ok := index.Lookup("OEBPS/images/a.png")
	if !ok {
		t.Fatal("a.png missing from index")
	}
	if !strings.HasPrefix(img.DataURI, "data:image/png;base64,") {
		t.Errorf("DataURI = %.40q", img.DataURI)
	}
	if img.Width != 10 || img.Height != 5 {
		t.Errorf("size = %dx%d, want 10x5 after optimization", img.Width, img.Height)
	}
	if _, ok := index.Lookup("a.png"); !ok {
		t.Error("image should also be keyed by bare filename")
	}
	if _, ok := index.Lookup("OEBPS/text/c.xhtml"); ok {
		t.Error("non-image items must not be indexed")
	}
}

func TestBuildImageIndex_NoOptimizer(t *testing.T) {
	raw := []byte("not really a gif")
	a := openTestArchive(t, testFile{name: "x.gif", content: raw})
	pkg := &epub.Package{
		Manifest:      map[string]epub.ManifestItem{"x": {ID: "x", Href: "x.gif", MediaType: "image/gif"}},
		ManifestOrder: []string{"x"},
	}

	index, errs := BuildImageIndex(context.Background(), a, pkg, nil)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	img, _ := index.Lookup("x.gif")
	if img.DataURI != "data:image/gif;base64,bm90IHJlYWxseSBhIGdpZg==" {
		t.Errorf("DataURI = %q", img.DataURI)
	}
}

func TestBuildImageIndex_UnoptimizableImageReported(t *testing.T) {
	raw := []byte("not really a png")
	a := openTestArchive(t, testFile{name: "OEBPS/x.png", content: raw})
	pkg := &epub.Package{
		Manifest:      map[string]epub.ManifestItem{"x": {ID: "x", Href: "OEBPS/x.png", MediaType: "image/png"}},
		ManifestOrder: []string{"x"},
	}

	index, errs := BuildImageIndex(context.Background(), a, pkg, NewImageOptimizer(ParseOptions{MaxImageWidth: 10}))
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one warning", errs)
	}
	var se *epub.StageError
	if !errors.As(errs[0], &se) || se.Stage != StageImages || se.Path != "OEBPS/x.png" {
		t.Errorf("error = %#v, want an images StageError for OEBPS/x.png", errs[0])
	}
	if _, ok := index.Lookup("OEBPS/x.png"); !ok {
		t.Error("image should still be indexed with its original bytes")
	}
}
