package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"quill/internal/diag"
	"quill/internal/source"
)

// TestJSONBasic проверяет базовое JSON форматирование
func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("decls.yaml", []byte(declsYAML))

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaUnknownType, fooSpan(fileID), "unknown type Foo").
		WithNote(source.Span{File: fileID, Start: 19, End: 20}, "in struct A"))

	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{
		IncludePositions: true,
		PathMode:         PathModeBasename,
		IncludeNotes:     true,
	})
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("Expected one diagnostic, got %+v", output)
	}

	d := output.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "SEM3003" || d.Title != "Unknown type" {
		t.Errorf("unexpected header: %+v", d)
	}
	if d.Location.File != "decls.yaml" || d.Location.Start != 57 || d.Location.End != 60 {
		t.Errorf("unexpected location: %+v", d.Location)
	}
	if from, to := d.Location.From, d.Location.To; from == nil || to == nil || from.Line != 4 || from.Col != 25 || to.Col != 28 {
		t.Errorf("unexpected positions: %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.From == nil || d.Notes[0].Location.From.Line != 2 {
		t.Errorf("unexpected notes: %+v", d.Notes)
	}
	if output.Errors != 1 || output.Warnings != 0 || output.Truncated {
		t.Errorf("unexpected counts: %+v", output)
	}
}

func TestJSONWithoutPositionsAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("decls.yaml", []byte(declsYAML))
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaUnknownType, fooSpan(fileID), "unknown type Foo").
		WithNote(fooSpan(fileID), "ignored"))

	output := BuildDiagnosticsOutput(bag, fs, JSONOpts{PathMode: PathModeBasename})
	d := output.Diagnostics[0]
	if d.Location.From != nil || d.Location.To != nil {
		t.Errorf("positions included: %+v", d.Location)
	}
	if d.Notes != nil {
		t.Errorf("notes included: %+v", d.Notes)
	}
}

func TestJSONMaxLimit(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("decls.yaml", []byte(declsYAML))
	bag := diag.NewBag(10)
	for range 4 {
		bag.Add(diag.NewError(diag.SemaUnknownType, fooSpan(fileID), "unknown type Foo"))
	}
	bag.Add(diag.New(diag.SevWarning, diag.SemaUnneededStorageAnnotation, fooSpan(fileID), "unneeded"))

	output := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	if output.Count != 2 || len(output.Diagnostics) != 2 || !output.Truncated {
		t.Fatalf("Max not applied: %+v", output)
	}
	// счётчики по всему мешку, не по выводу
	if output.Errors != 4 || output.Warnings != 1 {
		t.Fatalf("counts = %d errors, %d warnings", output.Errors, output.Warnings)
	}
}

func TestJSONUnknownFile(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.ProjManifest, source.Span{File: 9}, "bad manifest"))

	output := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludePositions: true})
	if output.Diagnostics[0].Location.File != "" {
		t.Fatalf("unexpected file: %+v", output.Diagnostics[0].Location)
	}
}

func TestParsePathMode(t *testing.T) {
	for _, mode := range []PathMode{PathModeAuto, PathModeAbsolute, PathModeRelative, PathModeBasename} {
		got, err := ParsePathMode(mode.String())
		if err != nil || got != mode {
			t.Fatalf("ParsePathMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParsePathMode("short"); err == nil {
		t.Fatalf("expected error")
	}
}
