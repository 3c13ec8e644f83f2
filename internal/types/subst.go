package types

// MatchTypeParameter reports whether id mentions a formal bound by m.
// A bare formal yields its concrete type; a compound type containing formals
// yields a newly interned specialisation whose substituted members are wrapped in Ref.
func (in *Interner) MatchTypeParameter(id TypeID, m Mapping) (TypeID, bool) {
	if id == NoTypeID || m.IsEmpty() {
		return NoTypeID, false
	}
	tt := in.Resolve(id)
	switch tt.Kind {
	case KindGeneric:
		return in.lookupFormal(m, tt)
	case KindArray:
		if elem, ok := in.MatchTypeParameter(tt.Elem, m); ok {
			tt.Elem = in.Intern(MakeRef(elem))
			return in.Intern(tt), true
		}
	case KindTuple:
		changed := false
		for i := range tt.Elems {
			if elem, ok := in.MatchTypeParameter(tt.Elems[i], m); ok {
				tt.Elems[i] = in.Intern(MakeRef(elem))
				changed = true
			}
		}
		if changed {
			return in.Intern(tt), true
		}
	case KindStruct:
		changed := false
		for i := range tt.Fields {
			if ft, ok := in.MatchTypeParameter(tt.Fields[i].Type, m); ok {
				tt.Fields[i].Type = in.Intern(MakeRef(ft))
				changed = true
			}
		}
		if changed {
			return in.Intern(tt), true
		}
	case KindEnum:
		changed := false
		for i := range tt.Variants {
			if vt, ok := in.MatchTypeParameter(tt.Variants[i].Type, m); ok {
				tt.Variants[i].Type = in.Intern(MakeRef(vt))
				changed = true
			}
		}
		if changed {
			return in.Intern(tt), true
		}
	}
	return NoTypeID, false
}

// Substitute applies m to one member type. A match becomes a Ref to the
// concrete type, marking it as produced by substitution; anything else is
// re-interned unchanged, which returns the same id.
func (in *Interner) Substitute(id TypeID, m Mapping) TypeID {
	if id == NoTypeID {
		return NoTypeID
	}
	if concrete, ok := in.MatchTypeParameter(id, m); ok {
		return in.Intern(MakeRef(concrete))
	}
	return in.Intern(in.MustLookup(id))
}

// IsSubstituted reports whether id carries the Ref marker left by Substitute.
func (in *Interner) IsSubstituted(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == KindRef
}

// ContainsGeneric reports whether any formal type parameter occurs in id.
func (in *Interner) ContainsGeneric(id TypeID) bool {
	tt := in.Resolve(id)
	switch tt.Kind {
	case KindGeneric:
		return true
	case KindArray:
		return in.ContainsGeneric(tt.Elem)
	case KindTuple:
		for _, e := range tt.Elems {
			if in.ContainsGeneric(e) {
				return true
			}
		}
	case KindStruct:
		for _, f := range tt.Fields {
			if in.ContainsGeneric(f.Type) {
				return true
			}
		}
	case KindEnum:
		for _, v := range tt.Variants {
			if in.ContainsGeneric(v.Type) {
				return true
			}
		}
	}
	return false
}
