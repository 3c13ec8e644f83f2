package testkit

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"quill/internal/ast"
	"quill/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a loaded package:
// 1) every span points to one of pkg.Files and lies within its content
// 2) identifier spans are non-empty and, unless escaped, spell the interned name
// 3) type expression spans are non-empty
func CheckSpanInvariants(pkg *ast.Package, fs *source.FileSet, strs *source.Interner) error {
	if pkg == nil || fs == nil || strs == nil {
		return fmt.Errorf("nil package, file set or interner")
	}
	c := &spanChecker{fs: fs, strs: strs, files: make(map[source.FileID]bool, len(pkg.Files))}
	for _, id := range pkg.Files {
		c.files[id] = true
	}

	if pkg.Storage != nil {
		c.span("storage", pkg.Storage.Span)
		c.fields("storage", pkg.Storage.Fields)
	}
	pkg.Walk(func(_ []source.StringID, items *ast.Items) {
		c.items(items)
	})
	if pkg.Types != nil {
		for i, expr := range pkg.Types.Arena.Slice() {
			what := fmt.Sprintf("type expr #%d", i+1)
			c.span(what, expr.Span)
			if c.err == nil && expr.Span.End <= expr.Span.Start {
				c.err = fmt.Errorf("%s has an empty span %v", what, expr.Span)
			}
		}
	}
	return c.err
}

type spanChecker struct {
	fs    *source.FileSet
	strs  *source.Interner
	files map[source.FileID]bool
	err   error
}

func (c *spanChecker) items(items *ast.Items) {
	for _, s := range items.Structs {
		c.ident("struct", s.Name)
		c.span("struct", s.Span)
		c.idents("type parameter", s.TypeParams)
		c.fields("field", s.Fields)
	}
	for _, e := range items.Enums {
		c.ident("enum", e.Name)
		c.span("enum", e.Span)
		c.idents("type parameter", e.TypeParams)
		for _, v := range e.Variants {
			c.ident("variant", v.Name)
			c.span("variant", v.Span)
		}
	}
	for i := range items.Fns {
		c.fn(&items.Fns[i])
	}
	for _, im := range items.Impls {
		c.span("impl", im.Span)
		c.idents("type parameter", im.TypeParams)
		for i := range im.Methods {
			c.fn(&im.Methods[i])
		}
	}
	for _, m := range items.Mods {
		c.ident("module", m.Name)
		c.span("module", m.Span)
	}
}

func (c *spanChecker) fn(f *ast.FnDecl) {
	c.ident("function", f.Name)
	c.span("function", f.Span)
	for _, a := range f.Attrs {
		// имя атрибута синтезировано, его span указывает на аргументы
		c.span("attribute", a.Name.Span)
		c.idents("attribute argument", a.Args)
	}
	for _, p := range f.Params {
		c.ident("parameter", p.Name)
		c.span("parameter", p.Span)
	}
	for _, e := range f.Body {
		c.span(e.Kind.String(), e.Span)
	}
}

func (c *spanChecker) fields(what string, fields []ast.Field) {
	for _, f := range fields {
		c.ident(what, f.Name)
		c.span(what, f.Span)
	}
}

func (c *spanChecker) idents(what string, ids []ast.Ident) {
	for _, id := range ids {
		c.ident(what, id)
	}
}

func (c *spanChecker) ident(what string, id ast.Ident) {
	c.span(what, id.Span)
	if c.err != nil {
		return
	}
	if id.Span.End <= id.Span.Start {
		c.err = fmt.Errorf("%s identifier has an empty span %v", what, id.Span)
		return
	}
	f := c.fs.Get(id.Span.File)
	text := string(f.Content[id.Span.Start:id.Span.End])
	if strings.ContainsRune(text, '\\') {
		return
	}
	name, ok := c.strs.Lookup(id.Name)
	if !ok {
		c.err = fmt.Errorf("%s identifier %q is not interned", what, text)
		return
	}
	if got := norm.NFC.String(text); got != name {
		c.err = fmt.Errorf("%s identifier span spells %q, interned name is %q", what, got, name)
	}
}

func (c *spanChecker) span(what string, sp source.Span) {
	if c.err != nil {
		return
	}
	if !c.files[sp.File] {
		c.err = fmt.Errorf("%s span %v points outside the package files", what, sp)
		return
	}
	f := c.fs.Get(sp.File)
	if f == nil {
		c.err = fmt.Errorf("%s span %v: file not found", what, sp)
		return
	}
	size, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		c.err = fmt.Errorf("len content overflow: %w", err)
		return
	}
	if sp.Start > sp.End || sp.End > size {
		c.err = fmt.Errorf("%s span %v is outside content of %d bytes", what, sp, size)
	}
}
