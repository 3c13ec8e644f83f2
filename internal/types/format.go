package types

import (
	"strconv"
	"strings"
)

// String renders id for diagnostics, e.g. "[u8; 32]" or "(u64, Point)".
func (in *Interner) String(id TypeID) string {
	var sb strings.Builder
	in.write(&sb, id)
	return sb.String()
}

func (in *Interner) name(tt Type) string {
	s, ok := in.strings.Lookup(tt.Name)
	if !ok || s == "" {
		return "<anon>"
	}
	return s
}

func (in *Interner) write(sb *strings.Builder, id TypeID) {
	tt := in.Resolve(id)
	switch tt.Kind {
	case KindUnit:
		sb.WriteString("()")
	case KindBool:
		sb.WriteString("bool")
	case KindUint:
		sb.WriteString("u")
		sb.WriteString(strconv.Itoa(int(tt.Width)))
	case KindB256:
		sb.WriteString("b256")
	case KindStr:
		sb.WriteString("str[")
		sb.WriteString(strconv.FormatUint(tt.Count, 10))
		sb.WriteString("]")
	case KindArray:
		sb.WriteString("[")
		in.write(sb, tt.Elem)
		sb.WriteString("; ")
		sb.WriteString(strconv.FormatUint(tt.Count, 10))
		sb.WriteString("]")
	case KindTuple:
		sb.WriteString("(")
		for i, e := range tt.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			in.write(sb, e)
		}
		sb.WriteString(")")
	case KindGeneric, KindStruct, KindEnum:
		sb.WriteString(in.name(tt))
	default:
		sb.WriteString("<invalid>")
	}
}
