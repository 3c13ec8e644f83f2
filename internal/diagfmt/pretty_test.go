package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"quill/internal/diag"
	"quill/internal/source"
)

const declsYAML = "structs:\n  - name: A\n    fields:\n      - {name: a, type: Foo}\n"

// fooSpan указывает на "Foo" в четвёртой строке declsYAML
func fooSpan(id source.FileID) source.Span {
	return source.Span{File: id, Start: 57, End: 60}
}

func TestPrettyCaret(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("decls.yaml", []byte(declsYAML))

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaUnknownType, fooSpan(fileID), "unknown type Foo"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	output := buf.String()

	if !strings.Contains(output, "ERROR SEM3003: unknown type Foo") {
		t.Fatalf("missing header, got:\n%s", output)
	}
	if !strings.Contains(output, "--> decls.yaml:4:25") {
		t.Fatalf("missing location, got:\n%s", output)
	}
	if !strings.Contains(output, "4 |       - {name: a, type: Foo}") {
		t.Fatalf("missing source line, got:\n%s", output)
	}
	if !strings.Contains(output, "|"+strings.Repeat(" ", 25)+"^~~\n") {
		t.Fatalf("caret misaligned, got:\n%s", output)
	}
	if strings.Contains(output, "\x1b[") {
		t.Fatalf("color codes without Color option:\n%s", output)
	}
}

func TestPrettyContextLines(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("decls.yaml", []byte(declsYAML))

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaUnknownType, fooSpan(fileID), "unknown type Foo"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, Context: 1})
	output := buf.String()

	if !strings.Contains(output, "3 |     fields:") {
		t.Fatalf("missing context line, got:\n%s", output)
	}
	if strings.Contains(output, "2 |") {
		t.Fatalf("too much context, got:\n%s", output)
	}
}

// TestPrettyWideAndTabs проверяет выравнивание каретки по ширине символов
func TestPrettyWideAndTabs(t *testing.T) {
	fs := source.NewFileSet()
	wide := fs.AddVirtual("wide.yaml", []byte("名前: Foo\n"))
	tabbed := fs.AddVirtual("tab.yaml", []byte("\tx: Foo\n"))

	cases := []struct {
		span   source.Span
		indent int
	}{
		{source.Span{File: wide, Start: 8, End: 11}, 6},
		{source.Span{File: tabbed, Start: 4, End: 7}, 7},
	}
	for _, tc := range cases {
		bag := diag.NewBag(1)
		bag.Add(diag.NewError(diag.SemaUnknownType, tc.span, "unknown type Foo"))
		var buf bytes.Buffer
		Pretty(&buf, bag, fs, PrettyOpts{})
		if !strings.Contains(buf.String(), "|"+strings.Repeat(" ", tc.indent+1)+"^~~\n") {
			t.Fatalf("caret for file %d misaligned, got:\n%s", tc.span.File, buf.String())
		}
	}
}

func TestPrettyNotes(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("decls.yaml", []byte(declsYAML))

	bag := diag.NewBag(4)
	d := diag.NewError(diag.SemaDuplicateItem, source.Span{File: fileID, Start: 19, End: 20}, "duplicate item A").
		WithNote(source.Span{File: fileID, Start: 19, End: 20}, "first declared here").
		WithNote(source.Span{}, "items share one namespace")
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	output := buf.String()

	if !strings.Contains(output, "note: decls.yaml:2:11: first declared here") {
		t.Fatalf("expected note with location, got:\n%s", output)
	}
	if !strings.Contains(output, "note: items share one namespace") {
		t.Fatalf("expected note without location, got:\n%s", output)
	}

	buf.Reset()
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes printed without ShowNotes:\n%s", buf.String())
	}
}

func TestPrettyColor(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("decls.yaml", []byte(declsYAML))
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.SemaUnknownType, fooSpan(fileID), "unknown type Foo"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: true})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI codes, got:\n%q", buf.String())
	}
}

func TestShortAndSummary(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("decls.yaml", []byte(declsYAML))
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaUnknownType, fooSpan(fileID), "unknown type Foo"))
	bag.Add(diag.New(diag.SevWarning, diag.SemaUnneededStorageAnnotation, source.Span{File: fileID}, "unneeded"))
	bag.Add(diag.New(diag.SevWarning, diag.SemaUnneededStorageAnnotation, source.Span{File: fileID}, "unneeded"))

	var buf bytes.Buffer
	Short(&buf, bag, fs, PathModeBasename, false)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || lines[0] != "decls.yaml:4:25: ERROR SEM3003: unknown type Foo" {
		t.Fatalf("short output:\n%s", buf.String())
	}

	buf.Reset()
	Summary(&buf, bag, false)
	if buf.String() != "1 error, 2 warnings\n" {
		t.Fatalf("summary = %q", buf.String())
	}

	buf.Reset()
	Summary(&buf, diag.NewBag(1), false)
	if buf.Len() != 0 {
		t.Fatalf("summary of empty bag = %q", buf.String())
	}
}
