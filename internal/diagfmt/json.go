package diagfmt

import (
	"encoding/json"
	"io"

	"quill/internal/diag"
	"quill/internal/source"
)

// PositionJSON is a 1-based line and column.
type PositionJSON struct {
	Line uint32 `json:"line"`
	Col  uint32 `json:"col"`
}

// LocationJSON is a byte range of a file; From and To are set with IncludePositions.
type LocationJSON struct {
	File  string        `json:"file"`
	Start uint32        `json:"start"`
	End   uint32        `json:"end"`
	From  *PositionJSON `json:"from,omitempty"`
	To    *PositionJSON `json:"to,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the JSON document of one bag. Errors and Warnings
// count the whole bag, Count only what was written.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
	Truncated   bool             `json:"truncated,omitempty"`
}

type locator struct {
	fs   *source.FileSet
	opts JSONOpts
}

func (l locator) location(span source.Span) LocationJSON {
	loc := LocationJSON{Start: span.Start, End: span.End}
	f := l.fs.Get(span.File)
	if f == nil {
		return loc
	}
	loc.File = f.FormatPath(l.opts.PathMode.String(), l.fs.BaseDir())
	if l.opts.IncludePositions {
		from, to := l.fs.Resolve(span)
		loc.From = &PositionJSON{Line: from.Line, Col: from.Col}
		loc.To = &PositionJSON{Line: to.Line, Col: to.Col}
	}
	return loc
}

// BuildDiagnosticsOutput prepares the JSON document without encoding it.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, len(items))}
	l := locator{fs: fs, opts: opts}
	for i := range items {
		d := &items[i]
		switch {
		case d.Severity >= diag.SevError:
			out.Errors++
		case d.Severity == diag.SevWarning:
			out.Warnings++
		}
		if opts.Max > 0 && len(out.Diagnostics) == opts.Max {
			out.Truncated = true
			continue
		}
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: l.location(d.Primary),
		}
		if opts.IncludeNotes {
			for _, note := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{Message: note.Msg, Location: l.location(note.Span)})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON writes the diagnostics of bag as an indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
