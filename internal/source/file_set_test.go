package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("decls.yaml", []byte("ab\ncd\n\nef"))

	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}},
		{3, LineCol{2, 1}},
		{7, LineCol{4, 1}},
		{8, LineCol{4, 2}},
	}
	for _, c := range cases {
		start, _ := fs.Resolve(Span{File: id, Start: c.off, End: c.off})
		if start != c.want {
			t.Fatalf("offset %d: got %+v, want %+v", c.off, start, c.want)
		}
	}
}

func TestFileOffsetRoundTrip(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("x.yaml", []byte("first\n  second: 1\nthird"))
	f := fs.Get(id)

	off := f.Offset(LineCol{Line: 2, Col: 3})
	if off != 8 {
		t.Fatalf("expected offset 8, got %d", off)
	}
	start, _ := fs.Resolve(Span{File: id, Start: off, End: off})
	if start != (LineCol{Line: 2, Col: 3}) {
		t.Fatalf("round trip mismatch: %+v", start)
	}
	sp := f.LineSpan(LineCol{Line: 2, Col: 3})
	if got := string(f.Content[sp.Start:sp.End]); got != "second: 1" {
		t.Fatalf("unexpected line span text %q", got)
	}
	if f.GetLine(3) != "third" || f.GetLine(9) != "" {
		t.Fatalf("GetLine mismatch")
	}
}

func TestFileSetLoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crlf.yaml")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFa\r\nb\r\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "a\nb\n" {
		t.Fatalf("unexpected content %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected BOM and CRLF flags, got %b", f.Flags)
	}
	if got, ok := fs.GetByPath(path); !ok || got.ID != id {
		t.Fatalf("GetByPath mismatch")
	}
}

func TestFormatPath(t *testing.T) {
	fs := NewFileSet()
	fs.SetBaseDir("/home/user/project")
	f := fs.Get(fs.AddVirtual("/home/user/project/src/token/decls.yaml", nil))

	cases := map[string]string{
		"relative": "src/token/decls.yaml",
		"basename": "decls.yaml",
		"auto":     "/home/user/project/src/token/decls.yaml",
		"":         "/home/user/project/src/token/decls.yaml",
	}
	for mode, want := range cases {
		if got := f.FormatPath(mode, fs.BaseDir()); got != want {
			t.Fatalf("FormatPath(%q) = %q, want %q", mode, got, want)
		}
	}
	if fs.BaseDir() != "/home/user/project" {
		t.Fatalf("BaseDir = %q", fs.BaseDir())
	}
}

func TestFileSetNeverIssuesZeroID(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.yaml", []byte("x"))
	if id == NoFileID {
		t.Fatalf("first file got NoFileID")
	}
	if fs.Get(NoFileID) != nil {
		t.Fatalf("Get(NoFileID) must be nil")
	}
	if fs.Get(id).Path != "a.yaml" || fs.Get(id+1) != nil {
		t.Fatalf("lookup by id is off")
	}
}
