package sema

import (
	"errors"
	"slices"
	"testing"

	"quill/internal/abi"
	"quill/internal/ast"
	"quill/internal/namespace"
	"quill/internal/source"
	"quill/internal/types"
)

type recordingCopier struct {
	calls [][2]types.TypeID
}

func (r *recordingCopier) CopyMethodsToType(old, new types.TypeID, _ types.Mapping) {
	r.calls = append(r.calls, [2]types.TypeID{old, new})
}

func genericWrapper(in *types.Interner) (*StructDecl, types.TypeID) {
	T := in.Intern(types.MakeGeneric(in.Strings().Intern("T")))
	return &StructDecl{
		Name: "Wrapper",
		Fields: []StructField{
			{Name: "value", Type: T, Span: source.Span{Start: 10, End: 15}},
			{Name: "count", Type: in.Builtins().U64, Span: source.Span{Start: 20, End: 25}},
		},
		TypeParams: []TypeParam{{Name: "T", Type: T}},
		Visibility: ast.VisPublic,
		Span:       source.Span{Start: 0, End: 30},
	}, T
}

func TestStructEqualityIgnoresSpans(t *testing.T) {
	in := types.NewInterner(nil)
	a, _ := genericWrapper(in)
	b := a.Clone()
	b.Span = source.Span{File: 3, Start: 100, End: 200}
	b.Fields[0].Span = source.Span{Start: 1, End: 2}

	if !a.Equal(in, b) {
		t.Fatalf("declarations differing only by span must be equal")
	}
	if a.Hash(in) != b.Hash(in) {
		t.Fatalf("declarations differing only by span must hash equal")
	}

	b.Fields[1].Type = in.Intern(types.MakeRef(in.Builtins().U64))
	if !a.Equal(in, b) || a.Hash(in) != b.Hash(in) {
		t.Fatalf("field types compare structurally")
	}

	b.Fields[1].Name = "total"
	if a.Equal(in, b) {
		t.Fatalf("field names are part of equality")
	}
}

func TestEnumEqualityIgnoresSpans(t *testing.T) {
	in := types.NewInterner(nil)
	b := in.Builtins()
	e1 := &EnumDecl{
		Name: "Color",
		Variants: []EnumVariant{
			{Name: "Red", Type: b.Unit, Tag: 0, Span: source.Span{Start: 1, End: 2}},
			{Name: "Rgb", Type: b.U32, Tag: 1},
		},
	}
	e2 := e1.Clone()
	e2.Variants[0].Span = source.Span{}
	e2.Span = source.Span{Start: 50, End: 60}
	if !e1.Equal(in, e2) || e1.Hash(in) != e2.Hash(in) {
		t.Fatalf("enums differing only by span must be equal and hash equal")
	}
	e2.Variants[1].Tag = 7
	if e1.Equal(in, e2) {
		t.Fatalf("tags are part of equality")
	}
}

func TestMonomorphizeEmptyMappingIsNoop(t *testing.T) {
	in := types.NewInterner(nil)
	d, _ := genericWrapper(in)
	copier := &recordingCopier{}

	got := d.Monomorphize(in, types.Mapping{}, copier)
	if !got.Equal(in, d) {
		t.Fatalf("empty mapping must not change the declaration")
	}
	if len(copier.calls) != 1 {
		t.Fatalf("method migration must still be requested, got %d calls", len(copier.calls))
	}
	if copier.calls[0][0] != copier.calls[0][1] {
		t.Fatalf("old and new ids must match for a no-op")
	}
	if got.TypeID(in) != d.TypeID(in) {
		t.Fatalf("no-op monomorphisation must keep the type id")
	}
}

func TestMonomorphizeDoesNotAliasTemplate(t *testing.T) {
	in := types.NewInterner(nil)
	d, T := genericWrapper(in)
	m := types.MappingOf(types.MappingEntry{Formal: T, Concrete: in.Builtins().U64})

	got := d.Monomorphize(in, m, nil)
	if d.Fields[0].Type != T {
		t.Fatalf("template must keep its formal field type")
	}
	if !in.Same(got.Fields[0].Type, in.Builtins().U64) {
		t.Fatalf("field must be specialised, got %s", in.String(got.Fields[0].Type))
	}
	if !in.IsSubstituted(got.Fields[0].Type) {
		t.Fatalf("substituted field must carry the Ref marker")
	}
	if got.Fields[1].Type != in.Builtins().U64 {
		t.Fatalf("concrete field must keep its id")
	}
	if got.TypeID(in) == d.TypeID(in) {
		t.Fatalf("specialised declaration must get a new type id")
	}
}

func TestMonomorphizeComposition(t *testing.T) {
	in := types.NewInterner(nil)
	d, T := genericWrapper(in)
	U := in.Intern(types.MakeGeneric(in.Strings().Intern("U")))
	m1 := types.MappingOf(types.MappingEntry{Formal: T, Concrete: in.Intern(types.MakeArray(U, 2))})
	m2 := types.MappingOf(types.MappingEntry{Formal: U, Concrete: in.Builtins().B256})

	twice := d.Monomorphize(in, m1, nil).Monomorphize(in, m2, nil)
	once := d.Monomorphize(in, in.Compose(m1, m2), nil)
	if !twice.Equal(in, once) || twice.Hash(in) != once.Hash(in) {
		t.Fatalf("sequential and composed monomorphisation differ: %s vs %s",
			in.String(twice.Fields[0].Type), in.String(once.Fields[0].Type))
	}
}

func TestEnumMonomorphizeKeepsTags(t *testing.T) {
	in := types.NewInterner(nil)
	T := in.Intern(types.MakeGeneric(in.Strings().Intern("T")))
	opt := &EnumDecl{
		Name: "Option",
		Variants: []EnumVariant{
			{Name: "None", Type: in.Builtins().Unit, Tag: 0},
			{Name: "Some", Type: T, Tag: 1},
		},
		TypeParams: []TypeParam{{Name: "T", Type: T}},
	}
	got := opt.Monomorphize(in, types.MappingOf(types.MappingEntry{Formal: T, Concrete: in.Builtins().U8}), nil)
	for i, v := range got.Variants {
		if v.Tag != opt.Variants[i].Tag {
			t.Fatalf("tag of %s changed", v.Name)
		}
	}
	if _, err := got.VariantByName("Some"); err != nil {
		t.Fatalf("VariantByName: %v", err)
	}
}

func TestFieldByNameListsAvailableFields(t *testing.T) {
	d := &StructDecl{
		Name:   "Point",
		Fields: []StructField{{Name: "a"}, {Name: "b"}},
		Span:   source.Span{Start: 4, End: 9},
	}
	_, err := d.FieldByName("c")
	var unknown *UnknownMemberError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownMemberError, got %v", err)
	}
	if !unknown.IsField || unknown.Decl != "Point" || unknown.Member != "c" || unknown.Span != d.Span {
		t.Fatalf("unexpected error contents: %+v", unknown)
	}
	if !slices.Equal(unknown.Available, []string{"a", "b"}) {
		t.Fatalf("available fields = %v", unknown.Available)
	}
	if f, err := d.FieldByName("b"); err != nil || f.Name != "b" {
		t.Fatalf("FieldByName(b) = %+v, %v", f, err)
	}
}

func TestMonomorphizeMigratesNamespaceMethods(t *testing.T) {
	in := types.NewInterner(nil)
	ns := namespace.InitRoot(namespace.NewRoot("pkg", in))
	d, T := genericWrapper(in)
	if err := ns.Methods().Add(d.TypeID(in), namespace.Method{Name: "get", Returns: T}); err != nil {
		t.Fatalf("add: %v", err)
	}

	got := d.Monomorphize(in, types.MappingOf(types.MappingEntry{Formal: T, Concrete: in.Builtins().Bool}), ns)
	m, ok := ns.Methods().Method(got.TypeID(in), "get")
	if !ok {
		t.Fatalf("method must be registered on the specialised type")
	}
	if m.Returns != in.Builtins().Bool {
		t.Fatalf("migrated signature = %s", in.String(m.Returns))
	}
}

func TestStructABI(t *testing.T) {
	in := types.NewInterner(nil)
	d := &StructDecl{
		Name: "Pair",
		Fields: []StructField{
			{Name: "left", Type: in.Builtins().U8},
			{Name: "right", Type: in.Intern(types.MakeTuple(in.Builtins().Bool))},
		},
	}
	got := d.ABI(abi.NewGenerator(in))
	if len(got) != 2 || got[0].Type != "u8" || got[1].Type != "(_)" || len(got[1].Components) != 1 {
		t.Fatalf("unexpected abi %+v", got)
	}
}
