package sema

import (
	"context"
	"strings"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/source"
	"quill/internal/types"
)

// pkgBuilder assembles declaration trees the way the project loader does.
type pkgBuilder struct {
	strs *source.Interner
	pkg  *ast.Package
	pos  uint32
}

func newPkgBuilder(name string) *pkgBuilder {
	return &pkgBuilder{strs: source.NewInterner(), pkg: ast.NewPackage(name)}
}

// span hands out distinct spans so diagnostics can be told apart.
func (b *pkgBuilder) span() source.Span {
	b.pos += 10
	return source.Span{File: 1, Start: b.pos, End: b.pos + 5}
}

func (b *pkgBuilder) ident(name string) ast.Ident {
	return ast.Ident{Name: b.strs.Intern(name), Span: b.span()}
}

func (b *pkgBuilder) idents(names ...string) []ast.Ident {
	out := make([]ast.Ident, len(names))
	for i, n := range names {
		out[i] = b.ident(n)
	}
	return out
}

func (b *pkgBuilder) path(s string) []source.StringID {
	parts := strings.Split(s, "::")
	out := make([]source.StringID, len(parts))
	for i, p := range parts {
		out[i] = b.strs.Intern(p)
	}
	return out
}

func (b *pkgBuilder) named(path string, args ...ast.TypeExprID) ast.TypeExprID {
	return b.pkg.Types.NewNamed(b.path(path), args, b.span())
}

func (b *pkgBuilder) array(elem ast.TypeExprID, n uint64) ast.TypeExprID {
	return b.pkg.Types.NewArray(elem, n, b.span())
}

func (b *pkgBuilder) field(name string, ty ast.TypeExprID) ast.Field {
	return ast.Field{Name: b.ident(name), Type: ty, Span: b.span()}
}

func (b *pkgBuilder) structDecl(name string, vis ast.Visibility, params []string, fields ...ast.Field) ast.StructDecl {
	return ast.StructDecl{Name: b.ident(name), Vis: vis, TypeParams: b.idents(params...), Fields: fields, Span: b.span()}
}

func (b *pkgBuilder) effect(kind ast.EffectKind, target string) ast.Effect {
	return ast.Effect{Kind: kind, Target: b.path(target), Span: b.span()}
}

func (b *pkgBuilder) storageAttr(args ...string) ast.Attr {
	return ast.Attr{Name: b.ident("storage"), Args: b.idents(args...), Span: b.span()}
}

func (b *pkgBuilder) fn(name string, vis ast.Visibility, attrs []ast.Attr, body ...ast.Effect) ast.FnDecl {
	return ast.FnDecl{Name: b.ident(name), Vis: vis, Attrs: attrs, Body: body, Span: b.span()}
}

func (b *pkgBuilder) check() (*Result, *diag.Bag) {
	bag := diag.NewBag(0)
	res := Check(context.Background(), b.pkg, Options{
		Reporter: diag.BagReporter{Bag: bag},
		Types:    types.NewInterner(b.strs),
	})
	return res, bag
}

func codes(bag *diag.Bag) []diag.Code {
	items := bag.Items()
	out := make([]diag.Code, len(items))
	for i, d := range items {
		out[i] = d.Code
	}
	return out
}
