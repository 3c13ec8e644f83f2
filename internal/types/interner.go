package types

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"fortio.org/safecast"

	"quill/internal/source"
)

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Unit TypeID
	Bool TypeID
	U8   TypeID
	U16  TypeID
	U32  TypeID
	U64  TypeID
	B256 TypeID
}

// Interner is the type table of one compilation session: it maps structural
// descriptions to stable TypeIDs. Entries are never removed.
//
// Raw identity (Intern) keys on the description as written, so Ref(x) and x are
// distinct ids. Canonical identity (Same, Hash, Canonical) looks through Ref at
// every depth.
type Interner struct {
	strings  *source.Interner
	types    []Type
	index    map[string]TypeID
	ckeys    map[TypeID]string
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
// If strings is nil, a fresh string interner is allocated.
func NewInterner(strings *source.Interner) *Interner {
	if strings == nil {
		strings = source.NewInterner()
	}
	in := &Interner{
		strings: strings,
		types:   make([]Type, 1, 64), // reserve 0 for NoTypeID
		index:   make(map[string]TypeID, 64),
		ckeys:   make(map[TypeID]string, 64),
	}
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.U8 = in.Intern(MakeUint(Width8))
	in.builtins.U16 = in.Intern(MakeUint(Width16))
	in.builtins.U32 = in.Intern(MakeUint(Width32))
	in.builtins.U64 = in.Intern(MakeUint(Width64))
	in.builtins.B256 = in.Intern(Type{Kind: KindB256})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Strings exposes the identifier interner used for type names.
func (in *Interner) Strings() *source.Interner {
	return in.strings
}

// Len reports the number of interned types excluding the sentinel.
func (in *Interner) Len() int {
	return len(in.types) - 1
}

// Intern returns the id of a structurally equal description, inserting t when absent.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := rawKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t.clone())
	in.index[key] = id
	return id
}

// Lookup returns the raw descriptor for a TypeID without following refs.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id].clone(), true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// Resolve returns the descriptor behind id, following Ref chains.
// Unknown ids resolve to the invalid type.
func (in *Interner) Resolve(id TypeID) Type {
	for {
		tt, ok := in.Lookup(id)
		if !ok {
			return Type{}
		}
		if tt.Kind != KindRef {
			return tt
		}
		id = tt.Elem
	}
}

// Unref follows Ref chains and returns the first non-ref id.
func (in *Interner) Unref(id TypeID) TypeID {
	for {
		tt, ok := in.Lookup(id)
		if !ok || tt.Kind != KindRef {
			return id
		}
		id = tt.Elem
	}
}

// Canonical strips Ref wrappers at every depth and re-interns the result, so all
// ids denoting the same structural type collapse to one id.
func (in *Interner) Canonical(id TypeID) TypeID {
	if id == NoTypeID {
		return NoTypeID
	}
	tt := in.Resolve(id)
	switch tt.Kind {
	case KindArray:
		tt.Elem = in.Canonical(tt.Elem)
	case KindTuple:
		for i := range tt.Elems {
			tt.Elems[i] = in.Canonical(tt.Elems[i])
		}
	case KindStruct:
		for i := range tt.Fields {
			tt.Fields[i].Type = in.Canonical(tt.Fields[i].Type)
		}
		for i := range tt.Params {
			tt.Params[i] = in.Canonical(tt.Params[i])
		}
	case KindEnum:
		for i := range tt.Variants {
			tt.Variants[i].Type = in.Canonical(tt.Variants[i].Type)
		}
		for i := range tt.Params {
			tt.Params[i] = in.Canonical(tt.Params[i])
		}
	}
	return in.Intern(tt)
}

// Same reports whether a and b denote the same structural type.
func (in *Interner) Same(a, b TypeID) bool {
	if a == b {
		return true
	}
	return in.canonicalKey(a) == in.canonicalKey(b)
}

// Hash hashes the canonical structure behind id, never the handle itself,
// so Same(a, b) implies Hash(a) == Hash(b).
func (in *Interner) Hash(id TypeID) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(in.canonicalKey(id)))
	return h.Sum64()
}

// canonicalKey encodes the resolved structure of id with nested ids replaced by
// their own canonical keys. Keys are memoised: interned types never change.
func (in *Interner) canonicalKey(id TypeID) string {
	if key, ok := in.ckeys[id]; ok {
		return key
	}
	tt := in.Resolve(id)
	var kb keyBuilder
	kb.header(tt)
	nested := func(child TypeID) {
		kb.str(in.canonicalKey(child))
	}
	switch tt.Kind {
	case KindArray:
		nested(tt.Elem)
	case KindTuple:
		kb.uint(uint64(len(tt.Elems)))
		for _, e := range tt.Elems {
			nested(e)
		}
	case KindStruct:
		kb.uint(uint64(len(tt.Fields)))
		for _, f := range tt.Fields {
			kb.uint(uint64(f.Name))
			nested(f.Type)
		}
		kb.uint(uint64(len(tt.Params)))
		for _, p := range tt.Params {
			nested(p)
		}
	case KindEnum:
		kb.uint(uint64(len(tt.Variants)))
		for _, v := range tt.Variants {
			kb.uint(uint64(v.Name))
			kb.uint(uint64(v.Tag))
			nested(v.Type)
		}
		kb.uint(uint64(len(tt.Params)))
		for _, p := range tt.Params {
			nested(p)
		}
	}
	key := string(kb.buf)
	if id != NoTypeID {
		in.ckeys[id] = key
	}
	return key
}

// rawKey encodes t with nested ids taken as-is.
func rawKey(t Type) string {
	var kb keyBuilder
	kb.header(t)
	kb.uint(uint64(t.Elem))
	kb.ids(t.Elems)
	kb.uint(uint64(len(t.Fields)))
	for _, f := range t.Fields {
		kb.uint(uint64(f.Name))
		kb.uint(uint64(f.Type))
	}
	kb.uint(uint64(len(t.Variants)))
	for _, v := range t.Variants {
		kb.uint(uint64(v.Name))
		kb.uint(uint64(v.Tag))
		kb.uint(uint64(v.Type))
	}
	kb.ids(t.Params)
	return string(kb.buf)
}

type keyBuilder struct {
	buf []byte
}

func (kb *keyBuilder) header(t Type) {
	kb.buf = append(kb.buf, byte(t.Kind), byte(t.Width))
	kb.uint(uint64(t.Name))
	kb.uint(t.Count)
}

func (kb *keyBuilder) uint(v uint64) {
	kb.buf = binary.AppendUvarint(kb.buf, v)
}

func (kb *keyBuilder) ids(ids []TypeID) {
	kb.uint(uint64(len(ids)))
	for _, id := range ids {
		kb.uint(uint64(id))
	}
}

func (kb *keyBuilder) str(s string) {
	kb.uint(uint64(len(s)))
	kb.buf = append(kb.buf, s...)
}
