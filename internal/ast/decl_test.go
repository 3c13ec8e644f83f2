package ast

import (
	"testing"

	"quill/internal/source"
)

func TestArenaIndexesAreOneBased(t *testing.T) {
	a := NewArena[int](0)
	if a.Get(0) != nil || a.Get(1) != nil {
		t.Fatalf("empty arena must not return values")
	}
	id := a.Allocate(42)
	if id != 1 || *a.Get(id) != 42 || a.Len() != 1 {
		t.Fatalf("unexpected arena state: id=%d len=%d", id, a.Len())
	}
}

func TestTypeExprNameAndQualifier(t *testing.T) {
	strs := source.NewInterner()
	exprs := NewTypeExprs(0)
	a, b, point := strs.Intern("a"), strs.Intern("b"), strs.Intern("Point")

	id := exprs.NewNamed([]source.StringID{a, b, point}, nil, source.Span{})
	te := exprs.Get(id)
	if te.Name() != point {
		t.Fatalf("Name = %d, want %d", te.Name(), point)
	}
	if q := te.Qualifier(); len(q) != 2 || q[0] != a || q[1] != b {
		t.Fatalf("Qualifier = %v", q)
	}
	if exprs.Get(NoTypeExprID) != nil {
		t.Fatalf("NoTypeExprID must not resolve")
	}
}

func TestPackageWalk(t *testing.T) {
	strs := source.NewInterner()
	pkg := NewPackage("wallet")
	x, y, z := strs.Intern("x"), strs.Intern("y"), strs.Intern("z")
	pkg.Root.Mods = []ModDecl{
		{Name: Ident{Name: x}, Items: Items{Mods: []ModDecl{{Name: Ident{Name: y}}}}},
		{Name: Ident{Name: z}},
	}

	var got [][]source.StringID
	pkg.Walk(func(path []source.StringID, _ *Items) {
		got = append(got, append([]source.StringID(nil), path...))
	})
	if len(got) != 4 {
		t.Fatalf("expected 4 modules, got %d", len(got))
	}
	if len(got[0]) != 0 || len(got[2]) != 2 || got[2][1] != y || got[3][0] != z {
		t.Fatalf("unexpected walk order: %v", got)
	}
}
