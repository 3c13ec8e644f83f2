package sema

import (
	"slices"
	"strings"
	"testing"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/purity"
	"quill/internal/types"
)

func findStruct(res *Result, name string) *StructDecl {
	for _, s := range res.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func findFn(fns []*FnDecl, name string) *FnDecl {
	for _, f := range fns {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func TestCheckResolvesForwardAndNestedReferences(t *testing.T) {
	b := newPkgBuilder("wallet")
	b.pkg.Root.Structs = []ast.StructDecl{
		b.structDecl("Account", ast.VisPublic, nil,
			b.field("owner", b.named("b256")),
			b.field("position", b.named("geo::Point")),
		),
	}
	b.pkg.Root.Mods = []ast.ModDecl{{
		Name: b.ident("geo"),
		Vis:  ast.VisPublic,
		Items: ast.Items{Structs: []ast.StructDecl{
			b.structDecl("Point", ast.VisPublic, nil,
				b.field("x", b.named("u64")),
				b.field("y", b.named("u64")),
			),
		}},
	}}

	res, bag := b.check()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", codes(bag))
	}
	acc := findStruct(res, "Account")
	if acc == nil {
		t.Fatalf("Account not typed")
	}
	pos := res.Types.Resolve(acc.Fields[1].Type)
	if pos.Kind != types.KindStruct || res.Types.String(acc.Fields[1].Type) != "Point" {
		t.Fatalf("position resolved to %s", res.Types.String(acc.Fields[1].Type))
	}
	if len(res.Namespace.ModulePath()) != 0 {
		t.Fatalf("cursor must be back at the root, got %v", res.Namespace.ModulePath())
	}
	if len(res.ABI.Types) != 2 {
		t.Fatalf("abi types = %+v", res.ABI.Types)
	}
}

func TestCheckInstantiatesGenerics(t *testing.T) {
	b := newPkgBuilder("pkg")
	b.pkg.Root.Structs = []ast.StructDecl{
		b.structDecl("Wrapper", ast.VisPublic, []string{"T"}, b.field("value", b.named("T"))),
		b.structDecl("Holder", ast.VisPublic, nil,
			b.field("a", b.named("Wrapper", b.named("u64"))),
			b.field("b", b.named("Wrapper", b.named("u64"))),
			b.field("c", b.named("Wrapper", b.array(b.named("u8"), 4))),
		),
	}

	res, bag := b.check()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", codes(bag))
	}
	h := findStruct(res, "Holder")
	if h.Fields[0].Type != h.Fields[1].Type {
		t.Fatalf("equal instantiations must share one id")
	}
	if h.Fields[0].Type == h.Fields[2].Type {
		t.Fatalf("different arguments must produce different types")
	}
	inst := res.Types.Resolve(h.Fields[2].Type)
	if !res.Types.Same(inst.Fields[0].Type, res.Types.Intern(types.MakeArray(res.Types.Builtins().U8, 4))) {
		t.Fatalf("Wrapper<[u8; 4]>.value = %s", res.Types.String(inst.Fields[0].Type))
	}
	if len(res.Instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(res.Instances))
	}
	for _, typ := range res.ABI.Types {
		if typ.Name == "Wrapper" {
			t.Fatalf("generic templates are not part of the abi")
		}
	}
}

func TestCheckTypeArgumentCount(t *testing.T) {
	b := newPkgBuilder("pkg")
	b.pkg.Root.Structs = []ast.StructDecl{
		b.structDecl("Wrapper", ast.VisPublic, []string{"T"}, b.field("value", b.named("T"))),
		b.structDecl("Bad", ast.VisPublic, nil,
			b.field("a", b.named("Wrapper")),
			b.field("b", b.named("u64", b.named("bool"))),
		),
	}
	_, bag := b.check()
	if bag.Count(diag.SemaTypeArgCount) != 2 {
		t.Fatalf("expected 2 arity errors, got %v", codes(bag))
	}
}

func TestCheckUnknownAndDuplicate(t *testing.T) {
	b := newPkgBuilder("pkg")
	b.pkg.Root.Structs = []ast.StructDecl{
		b.structDecl("A", ast.VisPublic, nil, b.field("x", b.named("Missing")), b.field("x", b.named("u8"))),
		b.structDecl("A", ast.VisPublic, nil),
	}
	b.pkg.Root.Fns = []ast.FnDecl{b.fn("f", ast.VisPublic, nil)}
	b.pkg.Root.Structs = append(b.pkg.Root.Structs,
		b.structDecl("C", ast.VisPublic, nil, b.field("g", b.named("f"))))

	_, bag := b.check()
	for _, code := range []diag.Code{diag.SemaUnknownType, diag.SemaDuplicateItem, diag.SemaDuplicateMember, diag.SemaNotAType} {
		if bag.Count(code) != 1 {
			t.Fatalf("expected one %s, got %v", code.ID(), codes(bag))
		}
	}
}

func TestCheckRecursiveType(t *testing.T) {
	b := newPkgBuilder("pkg")
	b.pkg.Root.Structs = []ast.StructDecl{
		b.structDecl("A", ast.VisPublic, nil, b.field("b", b.named("B"))),
		b.structDecl("B", ast.VisPublic, nil, b.field("a", b.named("A"))),
	}
	_, bag := b.check()
	if bag.Count(diag.SemaRecursiveType) != 1 {
		t.Fatalf("expected one recursion error, got %v", codes(bag))
	}
}

func TestCheckPrivateItems(t *testing.T) {
	b := newPkgBuilder("pkg")
	b.pkg.Root.Mods = []ast.ModDecl{
		{
			Name: b.ident("inner"),
			Items: ast.Items{
				Structs: []ast.StructDecl{b.structDecl("Secret", ast.VisPrivate, nil)},
				Mods: []ast.ModDecl{{
					Name: b.ident("deeper"),
					Items: ast.Items{Structs: []ast.StructDecl{
						b.structDecl("UsesSecret", ast.VisPublic, nil, b.field("s", b.named("pkg::inner::Secret"))),
					}},
				}},
			},
		},
	}
	b.pkg.Root.Structs = []ast.StructDecl{
		b.structDecl("Outside", ast.VisPublic, nil, b.field("s", b.named("inner::Secret"))),
	}
	_, bag := b.check()
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.SemaPrivateItem {
		t.Fatalf("expected exactly one private item error, got %v", codes(bag))
	}
	if !strings.Contains(items[0].Message, "Secret") {
		t.Fatalf("message must name the item: %q", items[0].Message)
	}
}

func TestCheckPurity(t *testing.T) {
	b := newPkgBuilder("pkg")
	b.pkg.Storage = &ast.StorageDecl{Fields: []ast.Field{
		b.field("balance", b.named("u64")),
		b.field("owner", b.named("b256")),
	}}
	b.pkg.Root.Fns = []ast.FnDecl{
		b.fn("get", ast.VisPublic, []ast.Attr{b.storageAttr("read")}, b.effect(ast.EffectRead, "balance")),
		b.fn("set", ast.VisPublic, []ast.Attr{b.storageAttr("write")}, b.effect(ast.EffectWrite, "balance")),
		b.fn("bump", ast.VisPublic, []ast.Attr{b.storageAttr("read", "write")},
			b.effect(ast.EffectCall, "get"),
			b.effect(ast.EffectCall, "set"),
		),
		b.fn("sneaky", ast.VisPublic, nil, b.effect(ast.EffectRead, "balance")),
		b.fn("reader_calls_writer", ast.VisPublic, []ast.Attr{b.storageAttr("read")}, b.effect(ast.EffectCall, "set")),
		b.fn("lazy", ast.VisPublic, []ast.Attr{b.storageAttr("write")}),
		b.fn("typo", ast.VisPublic, []ast.Attr{b.storageAttr("read")}, b.effect(ast.EffectRead, "balanse")),
		b.fn("bad_attr", ast.VisPublic, []ast.Attr{b.storageAttr("delete")}),
	}

	res, bag := b.check()
	if n := bag.Count(diag.SemaStorageAccess); n != 1 {
		t.Fatalf("expected one storage access error, got %v", codes(bag))
	}
	if n := bag.Count(diag.SemaPurityMismatch); n != 1 {
		t.Fatalf("expected one purity mismatch, got %v", codes(bag))
	}
	if n := bag.Count(diag.SemaUnneededStorageAnnotation); n != 1 {
		t.Fatalf("expected one unneeded annotation warning, got %v", codes(bag))
	}
	if n := bag.Count(diag.SemaUnknownField); n != 1 {
		t.Fatalf("expected one unknown storage field, got %v", codes(bag))
	}
	if n := bag.Count(diag.SemaInvalidStorageAttr); n != 1 {
		t.Fatalf("expected one invalid annotation, got %v", codes(bag))
	}

	if got := findFn(res.Fns, "bump").Inferred; got != purity.ReadsWrites {
		t.Fatalf("bump inferred %s", got)
	}
	if got := findFn(res.Fns, "get").Inferred; got != purity.Reads {
		t.Fatalf("get inferred %s", got)
	}
	fn, ok := res.ABI.Function("bump")
	if !ok || fn.Purity != "reads_writes" {
		t.Fatalf("abi purity of bump = %+v", fn)
	}
}

func TestCheckUnknownStorageFieldListsFields(t *testing.T) {
	b := newPkgBuilder("pkg")
	b.pkg.Storage = &ast.StorageDecl{Fields: []ast.Field{
		b.field("a", b.named("u64")),
		b.field("b", b.named("u64")),
	}}
	b.pkg.Root.Fns = []ast.FnDecl{
		b.fn("f", ast.VisPublic, []ast.Attr{b.storageAttr("read")}, b.effect(ast.EffectRead, "c")),
	}
	_, bag := b.check()
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.SemaUnknownField {
		t.Fatalf("unexpected diagnostics %v", codes(bag))
	}
	var listed bool
	for _, n := range items[0].Notes {
		if n.Msg == "available fields: a, b" {
			listed = true
		}
	}
	if !listed {
		t.Fatalf("notes must list a and b: %+v", items[0].Notes)
	}
}

func TestCheckMethodsAndLogs(t *testing.T) {
	b := newPkgBuilder("pkg")
	b.pkg.Storage = &ast.StorageDecl{Fields: []ast.Field{b.field("total", b.named("u64"))}}
	b.pkg.Root.Structs = []ast.StructDecl{
		b.structDecl("Wrapper", ast.VisPublic, []string{"T"}, b.field("value", b.named("T"))),
		b.structDecl("Holder", ast.VisPublic, nil, b.field("w", b.named("Wrapper", b.named("u64")))),
	}
	b.pkg.Root.Enums = []ast.EnumDecl{{
		Name: b.ident("Event"),
		Vis:  ast.VisPublic,
		Variants: []ast.Variant{
			{Name: b.ident("Deposit"), Type: b.named("u64")},
			{Name: b.ident("Reset")},
		},
	}}
	getter := b.fn("get", ast.VisPublic, nil)
	getter.Returns = b.named("U")
	saver := b.fn("save", ast.VisPublic, []ast.Attr{b.storageAttr("write")}, b.effect(ast.EffectWrite, "total"))
	b.pkg.Root.Impls = []ast.ImplDecl{{
		Target:     b.named("Wrapper", b.named("U")),
		TypeParams: b.idents("U"),
		Methods:    []ast.FnDecl{getter, saver},
	}}
	b.pkg.Root.Fns = []ast.FnDecl{
		b.fn("run", ast.VisPublic, []ast.Attr{b.storageAttr("write")},
			b.effect(ast.EffectCall, "Wrapper::save"),
			b.effect(ast.EffectLog, "Event::Deposit"),
		),
		b.fn("pure_caller", ast.VisPublic, nil, b.effect(ast.EffectCall, "Wrapper::save")),
		b.fn("bad_log", ast.VisPublic, nil, b.effect(ast.EffectLog, "Event::Withdraw")),
		b.fn("missing", ast.VisPublic, nil, b.effect(ast.EffectCall, "Wrapper::nope")),
	}

	res, bag := b.check()
	want := []diag.Code{diag.SemaPurityMismatch, diag.SemaUnknownVariant, diag.SemaUnknownFunction}
	got := codes(bag)
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("diagnostics = %v, want %v", got, want)
	}

	h := findStruct(res, "Holder")
	m, ok := res.Namespace.Methods().Method(h.Fields[0].Type, "get")
	if !ok {
		t.Fatalf("Wrapper<u64> must have the generic impl's methods")
	}
	if m.Returns != res.Types.Builtins().U64 {
		t.Fatalf("Wrapper<u64>::get returns %s", res.Types.String(m.Returns))
	}
	if got := findFn(res.Fns, "run").Inferred; got != purity.Writes {
		t.Fatalf("run inferred %s", got)
	}
	if len(res.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(res.Methods))
	}
}
