package sema

import (
	"fmt"
	"strings"

	"quill/internal/diag"
	"quill/internal/source"
)

// UnknownMemberError reports a field or variant name that a declaration lacks.
type UnknownMemberError struct {
	Decl      string
	Member    string
	Available []string
	Span      source.Span
	IsField   bool
}

func (e *UnknownMemberError) Error() string {
	if e.IsField {
		return fmt.Sprintf("struct %q has no field %q", e.Decl, e.Member)
	}
	return fmt.Sprintf("enum %q has no variant %q", e.Decl, e.Member)
}

// Code is the diagnostic code matching the member kind.
func (e *UnknownMemberError) Code() diag.Code {
	if e.IsField {
		return diag.SemaUnknownField
	}
	return diag.SemaUnknownVariant
}

// Report emits the error at the use site; the declaration and the available
// names are attached as notes.
func (e *UnknownMemberError) Report(r diag.Reporter, at source.Span) {
	b := diag.ReportError(r, e.Code(), at, e.Error())
	if !e.Span.IsZero() {
		b.WithNote(e.Span, fmt.Sprintf("%q is declared here", e.Decl))
	}
	if len(e.Available) > 0 {
		what := "variants"
		if e.IsField {
			what = "fields"
		}
		b.WithNote(source.Span{}, fmt.Sprintf("available %s: %s", what, strings.Join(e.Available, ", ")))
	}
	b.Emit()
}
