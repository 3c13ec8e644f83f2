package abi

import (
	"strconv"

	"quill/internal/types"
)

const (
	tupleElement = "__tuple_element"
	arrayElement = "__array_element"
)

// Generator renders interned types as ABI type strings and components.
type Generator struct {
	types *types.Interner
}

func NewGenerator(in *types.Interner) *Generator {
	return &Generator{types: in}
}

// TypeString is the descriptor of id, e.g. "u64", "[_; 4]" or "struct Point".
func (g *Generator) TypeString(id types.TypeID) string {
	tt := g.types.Resolve(id)
	switch tt.Kind {
	case types.KindUnit:
		return "()"
	case types.KindBool:
		return "bool"
	case types.KindUint:
		return "u" + strconv.Itoa(int(tt.Width))
	case types.KindB256:
		return "b256"
	case types.KindStr:
		return "str[" + strconv.FormatUint(tt.Count, 10) + "]"
	case types.KindTuple:
		s := "("
		for i := range tt.Elems {
			if i > 0 {
				s += ", "
			}
			s += "_"
		}
		return s + ")"
	case types.KindArray:
		return "[_; " + strconv.FormatUint(tt.Count, 10) + "]"
	case types.KindGeneric:
		return "generic " + g.types.String(id)
	case types.KindStruct:
		return "struct " + g.types.String(id)
	case types.KindEnum:
		return "enum " + g.types.String(id)
	default:
		return "unknown"
	}
}

// Components lists the inner entries of id, or nil for leaf types.
func (g *Generator) Components(id types.TypeID) []Property {
	tt := g.types.Resolve(id)
	strs := g.types.Strings()
	switch tt.Kind {
	case types.KindTuple:
		out := make([]Property, 0, len(tt.Elems))
		for _, e := range tt.Elems {
			out = append(out, g.Property(tupleElement, e))
		}
		return out
	case types.KindArray:
		return []Property{g.Property(arrayElement, tt.Elem)}
	case types.KindStruct:
		out := make([]Property, 0, len(tt.Fields))
		for _, f := range tt.Fields {
			out = append(out, g.Property(strs.MustLookup(f.Name), f.Type))
		}
		return out
	case types.KindEnum:
		out := make([]Property, 0, len(tt.Variants))
		for _, v := range tt.Variants {
			out = append(out, g.Property(strs.MustLookup(v.Name), v.Type))
		}
		return out
	default:
		return nil
	}
}

// Property projects one named member.
func (g *Generator) Property(name string, id types.TypeID) Property {
	return Property{
		Name:       name,
		Type:       g.TypeString(id),
		Components: g.Components(id),
	}
}
