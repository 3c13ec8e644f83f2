package sema

import (
	"encoding/binary"
	"hash/fnv"
	"slices"

	"quill/internal/abi"
	"quill/internal/ast"
	"quill/internal/purity"
	"quill/internal/source"
	"quill/internal/types"
)

// MethodCopier receives the method migration requested by monomorphisation.
// *namespace.Namespace implements it.
type MethodCopier interface {
	CopyMethodsToType(old, new types.TypeID, m types.Mapping)
}

// TypeParam is a formal type parameter of a declaration.
type TypeParam struct {
	Name string
	Type types.TypeID
	Span source.Span
}

func typeParamIDs(params []TypeParam) []types.TypeID {
	out := make([]types.TypeID, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

func sameTypeParams(in *types.Interner, a, b []TypeParam) bool {
	return slices.EqualFunc(a, b, func(x, y TypeParam) bool {
		return x.Name == y.Name && in.Same(x.Type, y.Type)
	})
}

// declHasher feeds names and canonical type hashes into FNV-64a.
type declHasher struct {
	in  *types.Interner
	buf []byte
}

func (h *declHasher) str(s string) {
	h.buf = binary.AppendUvarint(h.buf, uint64(len(s)))
	h.buf = append(h.buf, s...)
}

func (h *declHasher) uint(v uint64) {
	h.buf = binary.AppendUvarint(h.buf, v)
}

func (h *declHasher) typ(id types.TypeID) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, h.in.Hash(id))
}

func (h *declHasher) params(params []TypeParam) {
	h.uint(uint64(len(params)))
	for _, p := range params {
		h.str(p.Name)
		h.typ(p.Type)
	}
}

func (h *declHasher) sum() uint64 {
	f := fnv.New64a()
	_, _ = f.Write(h.buf)
	return f.Sum64()
}

// StructField is a typed field of a struct declaration.
type StructField struct {
	Name string
	Type types.TypeID
	Span source.Span
}

// StructDecl is a typed struct declaration.
type StructDecl struct {
	Name       string
	Fields     []StructField
	TypeParams []TypeParam
	Visibility ast.Visibility
	Span       source.Span
}

// Clone returns a copy that shares no slices with d.
func (d *StructDecl) Clone() *StructDecl {
	cp := *d
	cp.Fields = slices.Clone(d.Fields)
	cp.TypeParams = slices.Clone(d.TypeParams)
	return &cp
}

// TypeID interns the struct type described by the current fields.
func (d *StructDecl) TypeID(in *types.Interner) types.TypeID {
	strs := in.Strings()
	fields := make([]types.Field, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = types.Field{Name: strs.Intern(f.Name), Type: f.Type}
	}
	return in.Intern(types.MakeStruct(strs.Intern(d.Name), fields, typeParamIDs(d.TypeParams)))
}

// SubstituteTypes applies m to every field type in place.
func (d *StructDecl) SubstituteTypes(in *types.Interner, m types.Mapping) {
	for i := range d.Fields {
		d.Fields[i].Type = in.Substitute(d.Fields[i].Type, m)
	}
}

// Monomorphize returns a copy of d specialised by m and asks methods to
// register the methods of the generic type on the specialised one.
func (d *StructDecl) Monomorphize(in *types.Interner, m types.Mapping, methods MethodCopier) *StructDecl {
	out := d.Clone()
	old := out.TypeID(in)
	out.SubstituteTypes(in, m)
	updated := out.TypeID(in)
	if methods != nil {
		methods.CopyMethodsToType(old, updated, m)
	}
	return out
}

// FieldByName finds a field; failure lists every available field.
func (d *StructDecl) FieldByName(name string) (StructField, error) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	available := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		available[i] = f.Name
	}
	return StructField{}, &UnknownMemberError{
		Decl:      d.Name,
		Member:    name,
		Available: available,
		Span:      d.Span,
		IsField:   true,
	}
}

// ABI projects the fields.
func (d *StructDecl) ABI(gen *abi.Generator) []abi.Property {
	out := make([]abi.Property, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = gen.Property(f.Name, f.Type)
	}
	return out
}

// Equal compares everything except spans. Field types compare structurally.
func (d *StructDecl) Equal(in *types.Interner, other *StructDecl) bool {
	if d.Name != other.Name || d.Visibility != other.Visibility {
		return false
	}
	if !sameTypeParams(in, d.TypeParams, other.TypeParams) {
		return false
	}
	return slices.EqualFunc(d.Fields, other.Fields, func(a, b StructField) bool {
		return a.Name == b.Name && in.Same(a.Type, b.Type)
	})
}

// Hash agrees with Equal.
func (d *StructDecl) Hash(in *types.Interner) uint64 {
	h := declHasher{in: in}
	h.str("struct")
	h.str(d.Name)
	h.uint(uint64(d.Visibility))
	h.uint(uint64(len(d.Fields)))
	for _, f := range d.Fields {
		h.str(f.Name)
		h.typ(f.Type)
	}
	h.params(d.TypeParams)
	return h.sum()
}

// EnumVariant is a typed variant. Tags follow declaration order.
type EnumVariant struct {
	Name string
	Type types.TypeID
	Tag  uint32
	Span source.Span
}

// EnumDecl is a typed enum declaration.
type EnumDecl struct {
	Name       string
	Variants   []EnumVariant
	TypeParams []TypeParam
	Visibility ast.Visibility
	Span       source.Span
}

func (d *EnumDecl) Clone() *EnumDecl {
	cp := *d
	cp.Variants = slices.Clone(d.Variants)
	cp.TypeParams = slices.Clone(d.TypeParams)
	return &cp
}

func (d *EnumDecl) TypeID(in *types.Interner) types.TypeID {
	strs := in.Strings()
	variants := make([]types.Variant, len(d.Variants))
	for i, v := range d.Variants {
		variants[i] = types.Variant{Name: strs.Intern(v.Name), Type: v.Type, Tag: v.Tag}
	}
	return in.Intern(types.MakeEnum(strs.Intern(d.Name), variants, typeParamIDs(d.TypeParams)))
}

func (d *EnumDecl) SubstituteTypes(in *types.Interner, m types.Mapping) {
	for i := range d.Variants {
		d.Variants[i].Type = in.Substitute(d.Variants[i].Type, m)
	}
}

// Monomorphize keeps tags untouched.
func (d *EnumDecl) Monomorphize(in *types.Interner, m types.Mapping, methods MethodCopier) *EnumDecl {
	out := d.Clone()
	old := out.TypeID(in)
	out.SubstituteTypes(in, m)
	updated := out.TypeID(in)
	if methods != nil {
		methods.CopyMethodsToType(old, updated, m)
	}
	return out
}

func (d *EnumDecl) VariantByName(name string) (EnumVariant, error) {
	for _, v := range d.Variants {
		if v.Name == name {
			return v, nil
		}
	}
	available := make([]string, len(d.Variants))
	for i, v := range d.Variants {
		available[i] = v.Name
	}
	return EnumVariant{}, &UnknownMemberError{
		Decl:      d.Name,
		Member:    name,
		Available: available,
		Span:      d.Span,
	}
}

func (d *EnumDecl) ABI(gen *abi.Generator) []abi.Property {
	out := make([]abi.Property, len(d.Variants))
	for i, v := range d.Variants {
		out[i] = gen.Property(v.Name, v.Type)
	}
	return out
}

func (d *EnumDecl) Equal(in *types.Interner, other *EnumDecl) bool {
	if d.Name != other.Name || d.Visibility != other.Visibility {
		return false
	}
	if !sameTypeParams(in, d.TypeParams, other.TypeParams) {
		return false
	}
	return slices.EqualFunc(d.Variants, other.Variants, func(a, b EnumVariant) bool {
		return a.Name == b.Name && a.Tag == b.Tag && in.Same(a.Type, b.Type)
	})
}

func (d *EnumDecl) Hash(in *types.Interner) uint64 {
	h := declHasher{in: in}
	h.str("enum")
	h.str(d.Name)
	h.uint(uint64(d.Visibility))
	h.uint(uint64(len(d.Variants)))
	for _, v := range d.Variants {
		h.str(v.Name)
		h.typ(v.Type)
		h.uint(uint64(v.Tag))
	}
	h.params(d.TypeParams)
	return h.sum()
}

// FnParam is a typed function parameter.
type FnParam struct {
	Name string
	Type types.TypeID
	Span source.Span
}

// FnDecl is a typed function or method signature with its purity.
type FnDecl struct {
	Name       string
	Params     []FnParam
	Returns    types.TypeID
	Visibility ast.Visibility
	// Declared comes from the storage annotation, Inferred from the body.
	Declared purity.Purity
	Inferred purity.Purity
	// Receiver is the type of the impl block for methods, NoTypeID otherwise.
	Receiver types.TypeID
	Span     source.Span
}

func (f *FnDecl) ParamTypes() []types.TypeID {
	out := make([]types.TypeID, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Type
	}
	return out
}

// ABI describes f as a contract entry point.
func (f *FnDecl) ABI(gen *abi.Generator) abi.Function {
	inputs := make([]abi.Property, len(f.Params))
	for i, p := range f.Params {
		inputs[i] = gen.Property(p.Name, p.Type)
	}
	fn := abi.Function{
		Type:    "function",
		Name:    f.Name,
		Inputs:  inputs,
		Outputs: []abi.Property{gen.Property("", f.Returns)},
	}
	if f.Declared != purity.Pure {
		fn.Purity = f.Declared.String()
	}
	return fn
}
