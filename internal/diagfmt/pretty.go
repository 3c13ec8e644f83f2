package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"quill/internal/diag"
	"quill/internal/source"
)

const tabWidth = 4

type palette struct {
	enabled bool
	err     *color.Color
	warn    *color.Color
	info    *color.Color
	gutter  *color.Color
	note    *color.Color
	bold    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		enabled: enabled,
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		gutter:  color.New(color.FgBlue, color.Bold),
		note:    color.New(color.FgGreen),
		bold:    color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.gutter, p.note, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
//
//	<SEV> <CODE>: <Message>
//	  --> <path>:<line>:<col>
//
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		sevColor := p.severity(d.Severity)
		fmt.Fprintf(w, "%s %s: %s\n", sevColor.Sprint(d.Severity.String()), sevColor.Sprint(d.Code.ID()), p.bold.Sprint(d.Message))
		if loc, ok := location(fs, d.Primary, opts.PathMode); ok {
			fmt.Fprintf(w, "  %s %s\n", p.gutter.Sprint("-->"), loc)
			snippet(w, fs, d.Primary, int(opts.Context), sevColor, p)
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if loc, ok := location(fs, n.Span, opts.PathMode); ok {
				fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), loc, n.Msg)
				snippet(w, fs, n.Span, 0, p.note, p)
				continue
			}
			fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
		}
	}
}

// Summary prints "N errors, M warnings" or nothing for an empty bag.
func Summary(w io.Writer, bag *diag.Bag, useColor bool) {
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	if errs == 0 && warns == 0 {
		return
	}
	p := newPalette(useColor)
	parts := make([]string, 0, 2)
	if errs > 0 {
		parts = append(parts, p.err.Sprint(plural(errs, "error")))
	}
	if warns > 0 {
		parts = append(parts, p.warn.Sprint(plural(warns, "warning")))
	}
	fmt.Fprintln(w, strings.Join(parts, ", "))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

func location(fs *source.FileSet, sp source.Span, mode PathMode) (string, bool) {
	if fs == nil {
		return "", false
	}
	f := fs.Get(sp.File)
	if f == nil {
		return "", false
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", f.FormatPath(mode.String(), fs.BaseDir()), start.Line, start.Col), true
}

// snippet prints the lines around sp with a caret underline on the first line of sp.
func snippet(w io.Writer, fs *source.FileSet, sp source.Span, context int, mark *color.Color, p palette) {
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	first := int(start.Line) - context
	if first < 1 {
		first = 1
	}
	last := int(start.Line) + context
	lines := len(f.LineIdx) + 1
	if last > lines {
		last = lines
	}
	gutterWidth := len(strconv.Itoa(last))
	pad := strings.Repeat(" ", gutterWidth)

	fmt.Fprintf(w, " %s %s\n", pad, p.gutter.Sprint("|"))
	for ln := first; ln <= last; ln++ {
		text := f.GetLine(uint32(ln)) //nolint:gosec // ln ограничен числом строк файла
		fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprintf("%*d", gutterWidth, ln), p.gutter.Sprint("|"), expandTabs(text))
		if ln != int(start.Line) {
			continue
		}
		from := int(start.Col) - 1
		to := len(text)
		if end.Line == start.Line {
			to = int(end.Col) - 1
		}
		from = clamp(from, 0, len(text))
		to = clamp(to, from, len(text))
		indent := runewidth.StringWidth(expandTabs(text[:from]))
		width := runewidth.StringWidth(expandTabs(text[from:to]))
		if width < 1 {
			width = 1
		}
		underline := "^" + strings.Repeat("~", width-1)
		fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), strings.Repeat(" ", indent), mark.Sprint(underline))
	}
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
