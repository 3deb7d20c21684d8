package epub

import (
	"errors"
	"testing"
)

func TestParseNav(t *testing.T) {
	navHTML := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body>
  <nav epub:type="landmarks"><ol><li><a href="cover.xhtml">Cover</a></li></ol></nav>
  <nav epub:type="toc" id="toc">
    <ol>
      <li><a href="Text/intro.xhtml">Intro</a></li>
      <li><a href="Text/body.xhtml#start">
            Body   Text</a>
        <ol><li><a href="Text/body.xhtml#s2"></a></li></ol>
      </li>
    </ol>
  </nav>
</body>
</html>`

	entries, err := ParseNav(navHTML, "OEBPS/nav.xhtml", EnglishPlaceholders)
	if err != nil {
		t.Fatalf("ParseNav() error = %v", err)
	}

	want := []TocEntry{
		{ID: "nav-0", PlayOrder: 1, Label: "Intro", TargetPath: "OEBPS/Text/intro.xhtml"},
		{ID: "nav-1", PlayOrder: 2, Label: "Body Text", TargetPath: "OEBPS/Text/body.xhtml", Fragment: "start"},
		{ID: "nav-2", PlayOrder: 3, Label: "Chapter 3", TargetPath: "OEBPS/Text/body.xhtml", Fragment: "s2"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i, e := range entries {
		if e.ID != want[i].ID || e.PlayOrder != want[i].PlayOrder || e.Label != want[i].Label ||
			e.TargetPath != want[i].TargetPath || e.Fragment != want[i].Fragment {
			t.Errorf("entries[%d] = %+v, want %+v", i, e, want[i])
		}
		if e.Children == nil || len(e.Children) != 0 {
			t.Errorf("entries[%d].Children = %v, want flat outline", i, e.Children)
		}
	}
}

func TestParseNav_FallbackToFirstNav(t *testing.T) {
	navHTML := `<html><body><nav><ul><li><a href="a.xhtml">A</a></li></ul></nav><nav><a href="b.xhtml">B</a></nav></body></html>`

	entries, err := ParseNav(navHTML, "nav.xhtml", EnglishPlaceholders)
	if err != nil {
		t.Fatalf("ParseNav() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Label != "A" || entries[0].TargetPath != "a.xhtml" {
		t.Errorf("entries = %+v, want single entry from the first nav", entries)
	}
}

func TestParseNav_NoNav(t *testing.T) {
	_, err := ParseNav(`<html><body><p>nothing here</p></body></html>`, "nav.xhtml", EnglishPlaceholders)
	if !errors.Is(err, ErrTocUnavailable) {
		t.Errorf("ParseNav() error = %v, want ErrTocUnavailable", err)
	}
}
