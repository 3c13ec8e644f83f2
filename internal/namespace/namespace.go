package namespace

import (
	"fmt"

	"quill/internal/ast"
	"quill/internal/source"
	"quill/internal/types"
)

// Namespace tracks the module currently being checked inside a package tree.
type Namespace struct {
	// init is the template every module created by EnterSubmodule starts from.
	init    *Module
	root    *Root
	modPath ModulePath
}

// New returns an empty namespace: empty root, empty template, empty path.
func New() *Namespace {
	return &Namespace{
		init:    NewModule("", ast.VisPublic, source.Span{}),
		root:    NewRoot("", nil),
		modPath: ModulePath{},
	}
}

// InitRoot seeds a namespace from a prepared root. Every submodule already in
// root, dependencies included, becomes external. root itself is modified the
// same way; the namespace keeps its own copies.
func InitRoot(root *Root) *Namespace {
	if root.Module.IsExternal {
		panic("namespace: the root module must not be external during compilation")
	}
	root.Module.markSubmodulesExternal()
	root.Module.IsExternal = false
	return &Namespace{
		init:    root.Module.Clone(),
		root:    root.Clone(),
		modPath: ModulePath{},
	}
}

// ModulePath returns a copy of the cursor.
func (ns *Namespace) ModulePath() ModulePath {
	return ns.modPath.Clone()
}

// AbsolutePath returns the cursor prefixed with the package name.
func (ns *Namespace) AbsolutePath() ModulePath {
	return ModulePath{ns.root.Module.Name()}.Join(ns.modPath...)
}

// PrependModulePath returns the cursor followed by prefixes.
func (ns *Namespace) PrependModulePath(prefixes ...string) ModulePath {
	return ns.modPath.Join(prefixes...)
}

func (ns *Namespace) Root() *Root { return ns.root }

func (ns *Namespace) RootModule() *Module { return ns.root.Module }

// PackageName is the name of the root module.
func (ns *Namespace) PackageName() string { return ns.root.Module.Name() }

// Module returns the module under the cursor. The cursor is only moved by the
// namespace itself, so an unresolvable path panics.
func (ns *Namespace) Module() *Module {
	m, err := ns.root.Module.LookupSubmodule(ns.modPath)
	if err != nil {
		panic(fmt.Sprintf("namespace: current module path does not resolve: %v", err))
	}
	return m
}

// ModuleIsSubmoduleOf reports whether the cursor lies inside the module at
// absPath, which starts with a package name. trueIfSame decides the result
// when the cursor is exactly that module.
func (ns *Namespace) ModuleIsSubmoduleOf(absPath ModulePath, trueIfSame bool) bool {
	if len(absPath) == 0 {
		panic("namespace: absolute module path must contain the package name")
	}
	if absPath[0] != ns.root.Module.Name() {
		return false
	}
	modules := absPath[1:]
	if len(ns.modPath) < len(modules) {
		return false
	}
	for i, name := range modules {
		if ns.modPath[i] != name {
			return false
		}
	}
	if len(ns.modPath) == len(modules) {
		return trueIfSame
	}
	return true
}

// ModuleIsExternal reports whether absPath belongs to another package.
func (ns *Namespace) ModuleIsExternal(absPath ModulePath) bool {
	if len(absPath) == 0 {
		panic("namespace: absolute module path must contain the package name")
	}
	return absPath[0] != ns.root.Module.Name()
}

// EnterSubmodule moves the cursor into the child name of the current module,
// creating it from the init template when absent. The child inherits the
// externality of the current module. Callers restore the cursor with
//
//	guard := ns.EnterSubmodule(name, vis, span)
//	defer guard.Close()
func (ns *Namespace) EnterSubmodule(name string, vis ast.Visibility, span source.Span) *SubmoduleGuard {
	parent := ns.Module()
	path := ns.modPath.Join(name)
	if _, ok := parent.Submodule(name); !ok {
		parent.insert(ns.init.newSubmoduleFromInit(name, vis, span, parent.IsExternal, path))
	}
	prev := ns.modPath
	ns.modPath = path
	return &SubmoduleGuard{ns: ns, prev: prev}
}

// EnterPath moves the cursor to an existing module. It is used to come back to
// a declaration's module while resolving it on demand.
func (ns *Namespace) EnterPath(path ModulePath) *SubmoduleGuard {
	if _, err := ns.root.Module.LookupSubmodule(path); err != nil {
		panic(fmt.Sprintf("namespace: cannot enter %v", err))
	}
	prev := ns.modPath
	ns.modPath = path.Clone()
	return &SubmoduleGuard{ns: ns, prev: prev}
}

// PushSubmodule is the unscoped form of EnterSubmodule. The child, when
// created, is a plain empty module. Every push needs a matching PopSubmodule.
func (ns *Namespace) PushSubmodule(name string, vis ast.Visibility, span source.Span) {
	parent := ns.Module()
	if _, ok := parent.Submodule(name); !ok {
		child := NewModule(name, vis, span)
		child.path = ns.modPath.Join(name)
		parent.insert(child)
	}
	ns.modPath = ns.modPath.Join(name)
}

func (ns *Namespace) PopSubmodule() {
	if len(ns.modPath) == 0 {
		return
	}
	ns.modPath = ns.modPath[:len(ns.modPath)-1 : len(ns.modPath)-1]
}

// Items of the current module.
func (ns *Namespace) Items() *Items {
	return ns.Module().Items
}

// Methods is the package method registry.
func (ns *Namespace) Methods() *MethodTable {
	return ns.root.Methods
}

// CopyMethodsToType registers the methods of old under new.
func (ns *Namespace) CopyMethodsToType(old, new types.TypeID, m types.Mapping) {
	ns.root.Methods.CopyMethodsToType(old, new, m)
}

// SubmoduleGuard restores the cursor saved by EnterSubmodule or EnterPath.
type SubmoduleGuard struct {
	ns     *Namespace
	prev   ModulePath
	closed bool
}

// Namespace gives access to the namespace while the guard is open.
func (g *SubmoduleGuard) Namespace() *Namespace { return g.ns }

// Close restores the previous cursor. Calling it more than once is harmless.
func (g *SubmoduleGuard) Close() {
	if g == nil || g.closed {
		return
	}
	g.ns.modPath = g.prev
	g.closed = true
}
