package types

import (
	"fmt"
	"slices"

	"quill/internal/source"
)

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindUint
	KindB256
	KindStr
	KindRef
	KindTuple
	KindArray
	KindGeneric
	KindStruct
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindB256:
		return "b256"
	case KindStr:
		return "str"
	case KindRef:
		return "ref"
	case KindTuple:
		return "tuple"
	case KindArray:
		return "array"
	case KindGeneric:
		return "generic"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of unsigned integers.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Field is a named member of a struct type.
type Field struct {
	Name source.StringID
	Type TypeID
}

// Variant is a tagged member of an enum type.
type Variant struct {
	Name source.StringID
	Type TypeID
	Tag  uint32
}

// Type is the structural description stored in the interner.
// Compound kinds own their member slices; the interner clones them on the way in and out.
type Type struct {
	Kind     Kind
	Width    Width           // KindUint
	Name     source.StringID // generic, struct, enum
	Elem     TypeID          // ref target, array element
	Count    uint64          // array length, string capacity
	Elems    []TypeID        // tuple members
	Fields   []Field         // struct
	Variants []Variant       // enum
	Params   []TypeID        // formal type parameters of struct/enum
}

// Descriptor helpers ---------------------------------------------------------

// MakeUint describes an unsigned integer of the given width.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeStr describes a fixed-capacity string str[n].
func MakeStr(n uint64) Type {
	return Type{Kind: KindStr, Count: n}
}

// MakeRef wraps a type produced by substitution. Refs are transparent on Resolve.
func MakeRef(elem TypeID) Type {
	return Type{Kind: KindRef, Elem: elem}
}

// MakeArray describes [elem; n].
func MakeArray(elem TypeID, n uint64) Type {
	return Type{Kind: KindArray, Elem: elem, Count: n}
}

// MakeTuple describes (a, b, ...). An empty tuple is not the unit type.
func MakeTuple(elems ...TypeID) Type {
	return Type{Kind: KindTuple, Elems: slices.Clone(elems)}
}

// MakeGeneric describes a formal type parameter.
func MakeGeneric(name source.StringID) Type {
	return Type{Kind: KindGeneric, Name: name}
}

// MakeStruct describes a struct-shaped type.
func MakeStruct(name source.StringID, fields []Field, params []TypeID) Type {
	return Type{Kind: KindStruct, Name: name, Fields: slices.Clone(fields), Params: slices.Clone(params)}
}

// MakeEnum describes an enum-shaped type.
func MakeEnum(name source.StringID, variants []Variant, params []TypeID) Type {
	return Type{Kind: KindEnum, Name: name, Variants: slices.Clone(variants), Params: slices.Clone(params)}
}

func (t Type) clone() Type {
	t.Elems = slices.Clone(t.Elems)
	t.Fields = slices.Clone(t.Fields)
	t.Variants = slices.Clone(t.Variants)
	t.Params = slices.Clone(t.Params)
	return t
}

// IsCompound reports whether the kind carries nested type ids.
func (k Kind) IsCompound() bool {
	switch k {
	case KindRef, KindTuple, KindArray, KindStruct, KindEnum:
		return true
	}
	return false
}
