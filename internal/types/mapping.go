package types

import (
	"errors"
	"fmt"
	"slices"
)

// ErrArity is returned when the number of type arguments does not match the formals.
var ErrArity = errors.New("type argument count mismatch")

// MappingEntry binds one formal type parameter to a concrete type.
type MappingEntry struct {
	Formal   TypeID
	Concrete TypeID
}

// Mapping is an ordered substitution from formal type parameters to concrete types.
// The zero value is the empty mapping.
type Mapping struct {
	entries []MappingEntry
}

// NewMapping pairs formals with concretes positionally.
func NewMapping(formals, concretes []TypeID) (Mapping, error) {
	if len(formals) != len(concretes) {
		return Mapping{}, fmt.Errorf("%w: expected %d, got %d", ErrArity, len(formals), len(concretes))
	}
	entries := make([]MappingEntry, len(formals))
	for i := range formals {
		entries[i] = MappingEntry{Formal: formals[i], Concrete: concretes[i]}
	}
	return Mapping{entries: entries}, nil
}

// MappingOf builds a mapping from explicit entries.
func MappingOf(entries ...MappingEntry) Mapping {
	return Mapping{entries: slices.Clone(entries)}
}

func (m Mapping) Len() int { return len(m.entries) }

func (m Mapping) IsEmpty() bool { return len(m.entries) == 0 }

// Entries returns a copy of the bindings in order.
func (m Mapping) Entries() []MappingEntry {
	return slices.Clone(m.entries)
}

// Concretes returns the bound types in order.
func (m Mapping) Concretes() []TypeID {
	out := make([]TypeID, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Concrete
	}
	return out
}

// lookupFormal finds the binding whose formal resolves to the same generic as t.
func (in *Interner) lookupFormal(m Mapping, t Type) (TypeID, bool) {
	for _, e := range m.entries {
		ft := in.Resolve(e.Formal)
		if ft.Kind == KindGeneric && ft.Name == t.Name {
			return e.Concrete, true
		}
	}
	return NoTypeID, false
}

// Compose returns a mapping equivalent to applying first and then next:
// every concrete of first is specialised by next, and bindings of next whose
// formal first does not bind are appended.
func (in *Interner) Compose(first, next Mapping) Mapping {
	out := make([]MappingEntry, 0, len(first.entries)+len(next.entries))
	for _, e := range first.entries {
		concrete := e.Concrete
		if c, ok := in.MatchTypeParameter(concrete, next); ok {
			concrete = c
		}
		out = append(out, MappingEntry{Formal: e.Formal, Concrete: concrete})
	}
	for _, e := range next.entries {
		if _, bound := in.lookupFormal(first, in.Resolve(e.Formal)); bound {
			continue
		}
		out = append(out, e)
	}
	return Mapping{entries: out}
}
