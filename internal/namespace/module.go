package namespace

import (
	"errors"
	"fmt"

	"quill/internal/ast"
	"quill/internal/source"
)

var (
	ErrModuleNotFound  = errors.New("module not found")
	ErrDuplicateModule = errors.New("duplicate module")
)

// Module is one node of the module tree.
type Module struct {
	name       string
	Visibility ast.Visibility
	Span       source.Span
	// IsExternal marks modules that belong to another compiled package.
	IsExternal bool
	// path is relative to the package root.
	path       ModulePath
	submodules map[string]*Module
	order      []string
	Items      *Items
}

func NewModule(name string, vis ast.Visibility, span source.Span) *Module {
	return &Module{
		name:       name,
		Visibility: vis,
		Span:       span,
		submodules: make(map[string]*Module),
		Items:      NewItems(),
	}
}

func (m *Module) Name() string { return m.name }

// Path returns the module path relative to its package root.
func (m *Module) Path() ModulePath { return m.path.Clone() }

// Submodule returns the direct child called name.
func (m *Module) Submodule(name string) (*Module, bool) {
	sub, ok := m.submodules[name]
	return sub, ok
}

// SubmoduleNames lists direct children in creation order.
func (m *Module) SubmoduleNames() []string {
	return append([]string(nil), m.order...)
}

// Submodules returns direct children in creation order.
func (m *Module) Submodules() []*Module {
	out := make([]*Module, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.submodules[name])
	}
	return out
}

// LookupSubmodule walks path from m.
func (m *Module) LookupSubmodule(path ModulePath) (*Module, error) {
	cur := m
	for i, name := range path {
		next, ok := cur.submodules[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s (missing %q)", ErrModuleNotFound, path, path[:i+1].String())
		}
		cur = next
	}
	return cur, nil
}

// AttachSubmodule adds an existing tree as a direct child, rebasing its paths under m.
func (m *Module) AttachSubmodule(child *Module) error {
	if _, ok := m.submodules[child.name]; ok {
		return fmt.Errorf("%w: %q in %q", ErrDuplicateModule, child.name, m.name)
	}
	child.rebase(m.path.Join(child.name))
	m.insert(child)
	return nil
}

func (m *Module) rebase(path ModulePath) {
	m.path = path
	for _, sub := range m.Submodules() {
		sub.rebase(path.Join(sub.name))
	}
}

func (m *Module) insert(child *Module) {
	if _, ok := m.submodules[child.name]; !ok {
		m.order = append(m.order, child.name)
	}
	m.submodules[child.name] = child
}

// Clone deep-copies the subtree rooted at m.
func (m *Module) Clone() *Module {
	out := &Module{
		name:       m.name,
		Visibility: m.Visibility,
		Span:       m.Span,
		IsExternal: m.IsExternal,
		path:       m.path.Clone(),
		submodules: make(map[string]*Module, len(m.submodules)),
		order:      append([]string(nil), m.order...),
		Items:      m.Items.Clone(),
	}
	for name, sub := range m.submodules {
		out.submodules[name] = sub.Clone()
	}
	return out
}

// newSubmoduleFromInit turns a clone of the init template into a fresh child.
func (m *Module) newSubmoduleFromInit(name string, vis ast.Visibility, span source.Span, external bool, path ModulePath) *Module {
	sub := m.Clone()
	sub.name = name
	sub.Visibility = vis
	sub.Span = span
	sub.IsExternal = external
	sub.rebase(path)
	return sub
}

// markSubmodulesExternal marks every descendant external. A module that is
// already external keeps its subtree as is.
func (m *Module) markSubmodulesExternal() {
	for _, sub := range m.Submodules() {
		if sub.IsExternal {
			continue
		}
		sub.IsExternal = true
		sub.markSubmodulesExternal()
	}
}

// Walk visits m and its descendants depth-first in creation order.
func (m *Module) Walk(fn func(*Module) bool) {
	if !fn(m) {
		return
	}
	for _, sub := range m.Submodules() {
		sub.Walk(fn)
	}
}
