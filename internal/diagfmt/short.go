package diagfmt

import (
	"fmt"
	"io"

	"quill/internal/diag"
	"quill/internal/source"
)

// Short prints one line per diagnostic: <path>:<line>:<col>: <SEV> <CODE>: <Message>.
// Notes follow on their own indented lines when showNotes is set.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, mode PathMode, showNotes bool) {
	for _, d := range bag.Items() {
		loc, ok := location(fs, d.Primary, mode)
		if !ok {
			loc = "<unknown>"
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", loc, d.Severity, d.Code.ID(), d.Message)
		if !showNotes {
			continue
		}
		for _, n := range d.Notes {
			if nloc, ok := location(fs, n.Span, mode); ok {
				fmt.Fprintf(w, "    %s: note: %s\n", nloc, n.Msg)
				continue
			}
			fmt.Fprintf(w, "    note: %s\n", n.Msg)
		}
	}
}
