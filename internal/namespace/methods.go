package namespace

import (
	"errors"
	"fmt"
	"slices"

	"quill/internal/purity"
	"quill/internal/source"
	"quill/internal/types"
)

var ErrDuplicateMethod = errors.New("duplicate method")

// Method is the signature of a method attached to a type.
type Method struct {
	Name    string
	Params  []types.TypeID
	Returns types.TypeID
	Purity  purity.Purity
	Span    source.Span
	// Path is the absolute path of the module holding the impl block.
	Path ModulePath
	Decl any
}

func (m Method) clone() Method {
	m.Params = slices.Clone(m.Params)
	m.Path = m.Path.Clone()
	return m
}

type derivation struct {
	target  types.TypeID
	mapping types.Mapping
}

// MethodTable registers methods per type. Keys are canonical type ids, so a
// type reached through substitution finds the methods of its plain form.
//
// Every CopyMethodsToType call is remembered: methods added to the source type
// later are copied to the derived type as well, so the result does not depend
// on whether an impl block is checked before or after an instantiation.
type MethodTable struct {
	types   *types.Interner
	byType  map[types.TypeID][]Method
	derived map[types.TypeID][]derivation
}

func NewMethodTable(in *types.Interner) *MethodTable {
	return &MethodTable{
		types:   in,
		byType:  make(map[types.TypeID][]Method),
		derived: make(map[types.TypeID][]derivation),
	}
}

func (t *MethodTable) key(id types.TypeID) types.TypeID {
	if t.types == nil {
		return id
	}
	return t.types.Canonical(id)
}

// Add registers m on target and on every type derived from it.
func (t *MethodTable) Add(target types.TypeID, m Method) error {
	key := t.key(target)
	if t.has(key, m.Name) {
		return fmt.Errorf("%w: %q", ErrDuplicateMethod, m.Name)
	}
	t.byType[key] = append(t.byType[key], m.clone())
	t.propagate(key, m, make(map[types.TypeID]bool))
	return nil
}

func (t *MethodTable) propagate(from types.TypeID, m Method, seen map[types.TypeID]bool) {
	seen[from] = true
	for _, d := range t.derived[from] {
		if seen[d.target] {
			continue
		}
		cp := t.substitute(m, d.mapping)
		if !t.has(d.target, cp.Name) {
			t.byType[d.target] = append(t.byType[d.target], cp)
		}
		t.propagate(d.target, cp, seen)
	}
}

func (t *MethodTable) has(key types.TypeID, name string) bool {
	for _, m := range t.byType[key] {
		if m.Name == name {
			return true
		}
	}
	return false
}

// MethodsOf returns copies of the methods registered on target.
func (t *MethodTable) MethodsOf(target types.TypeID) []Method {
	ms := t.byType[t.key(target)]
	out := make([]Method, len(ms))
	for i, m := range ms {
		out[i] = m.clone()
	}
	return out
}

// Method finds one method of target by name.
func (t *MethodTable) Method(target types.TypeID, name string) (Method, bool) {
	for _, m := range t.byType[t.key(target)] {
		if m.Name == name {
			return m.clone(), true
		}
	}
	return Method{}, false
}

// CopyMethodsToType registers the methods of old under new with signatures
// specialised by mapping. Methods new already has by name are kept.
func (t *MethodTable) CopyMethodsToType(old, new types.TypeID, mapping types.Mapping) {
	from, to := t.key(old), t.key(new)
	if from == to {
		return
	}
	for _, m := range t.byType[from] {
		if t.has(to, m.Name) {
			continue
		}
		t.byType[to] = append(t.byType[to], t.substitute(m, mapping))
	}
	for _, d := range t.derived[from] {
		if d.target == to {
			return
		}
	}
	t.derived[from] = append(t.derived[from], derivation{target: to, mapping: mapping})
}

func (t *MethodTable) substitute(m Method, mapping types.Mapping) Method {
	cp := m.clone()
	if t.types == nil {
		return cp
	}
	for i, p := range cp.Params {
		cp.Params[i] = t.types.Canonical(t.types.Substitute(p, mapping))
	}
	cp.Returns = t.types.Canonical(t.types.Substitute(cp.Returns, mapping))
	return cp
}

// Types lists every type that has methods.
func (t *MethodTable) Types() []types.TypeID {
	out := make([]types.TypeID, 0, len(t.byType))
	for id := range t.byType {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Merge copies registrations of other into t; existing methods win.
// Both tables must key ids of the same interner.
func (t *MethodTable) Merge(other *MethodTable) {
	for key, ms := range other.byType {
		for _, m := range ms {
			if !t.has(key, m.Name) {
				t.byType[key] = append(t.byType[key], m.clone())
			}
		}
	}
	for key, ds := range other.derived {
		for _, d := range ds {
			if !slices.ContainsFunc(t.derived[key], func(x derivation) bool { return x.target == d.target }) {
				t.derived[key] = append(t.derived[key], d)
			}
		}
	}
}

func (t *MethodTable) Clone() *MethodTable {
	out := NewMethodTable(t.types)
	out.Merge(t)
	return out
}
