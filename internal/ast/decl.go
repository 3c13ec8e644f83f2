package ast

import "quill/internal/source"

// Ident is an identifier together with where it was written.
type Ident struct {
	Name source.StringID
	Span source.Span
}

type Field struct {
	Name Ident
	Type TypeExprID
	Span source.Span
}

type StructDecl struct {
	Name       Ident
	Vis        Visibility
	TypeParams []Ident
	Fields     []Field
	Span       source.Span
}

// Variant without a payload type carries NoTypeExprID and is typed as unit.
type Variant struct {
	Name Ident
	Type TypeExprID
	Span source.Span
}

type EnumDecl struct {
	Name       Ident
	Vis        Visibility
	TypeParams []Ident
	Variants   []Variant
	Span       source.Span
}

// Attr is an annotation such as storage(read, write).
type Attr struct {
	Name Ident
	Args []Ident
	Span source.Span
}

type Param struct {
	Name Ident
	Type TypeExprID
	Span source.Span
}

type EffectKind uint8

const (
	EffectRead  EffectKind = iota // storage.field read
	EffectWrite                   // storage.field write
	EffectCall                    // call of a function or Type::method
	EffectLog                     // log of Enum::Variant
)

func (k EffectKind) String() string {
	switch k {
	case EffectRead:
		return "read"
	case EffectWrite:
		return "write"
	case EffectCall:
		return "call"
	case EffectLog:
		return "log"
	default:
		return "effect"
	}
}

// Effect is one storage-relevant statement of a function body, kept in source order.
type Effect struct {
	Kind   EffectKind
	Target []source.StringID
	Span   source.Span
}

type FnDecl struct {
	Name    Ident
	Vis     Visibility
	Attrs   []Attr
	Params  []Param
	Returns TypeExprID // NoTypeExprID means unit
	Body    []Effect
	Span    source.Span
}

// Attr returns the first annotation called name.
func (f *FnDecl) Attr(name source.StringID) (*Attr, bool) {
	for i := range f.Attrs {
		if f.Attrs[i].Name.Name == name {
			return &f.Attrs[i], true
		}
	}
	return nil, false
}

type ImplDecl struct {
	Target     TypeExprID
	TypeParams []Ident
	Methods    []FnDecl
	Span       source.Span
}

// StorageDecl lists the persistent fields of a contract.
type StorageDecl struct {
	Fields []Field
	Span   source.Span
}

// ModDecl is a nested module and its declarations.
type ModDecl struct {
	Name  Ident
	Vis   Visibility
	Items Items
	Span  source.Span
}

// Items are the declarations of one module in source order per kind.
type Items struct {
	Structs []StructDecl
	Enums   []EnumDecl
	Fns     []FnDecl
	Impls   []ImplDecl
	Mods    []ModDecl
}

func (it *Items) IsEmpty() bool {
	return len(it.Structs) == 0 && len(it.Enums) == 0 && len(it.Fns) == 0 &&
		len(it.Impls) == 0 && len(it.Mods) == 0
}

// Package is everything handed to the checker for one compiled package.
type Package struct {
	Name    string
	Types   *TypeExprs
	Root    Items
	Storage *StorageDecl
	Files   []source.FileID
}

func NewPackage(name string) *Package {
	return &Package{
		Name:  name,
		Types: NewTypeExprs(1 << 6),
	}
}

// Walk visits every module of the package depth-first, root first.
// path excludes the package name.
func (p *Package) Walk(fn func(path []source.StringID, items *Items)) {
	var walk func(path []source.StringID, items *Items)
	walk = func(path []source.StringID, items *Items) {
		fn(path, items)
		for i := range items.Mods {
			mod := &items.Mods[i]
			walk(append(path[:len(path):len(path)], mod.Name.Name), &mod.Items)
		}
	}
	walk(nil, &p.Root)
}
