package sema

import (
	"context"
	"fmt"

	"quill/internal/abi"
	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/namespace"
	"quill/internal/source"
	"quill/internal/trace"
	"quill/internal/types"
)

// Options configure the check of one package.
type Options struct {
	Reporter diag.Reporter
	// Types must intern names with the same string interner the AST was built with.
	Types *types.Interner
	// Namespace is the package namespace after InitRoot; dependencies are
	// already attached to its root. A fresh one is created when nil.
	Namespace *namespace.Namespace
}

// Result stores what the checker produced for one package.
type Result struct {
	Package   string
	Types     *types.Interner
	Namespace *namespace.Namespace
	Structs   []*StructDecl
	Enums     []*EnumDecl
	Fns       []*FnDecl
	Methods   []*FnDecl
	Storage   *StructDecl
	// Instances holds every monomorphised declaration, keyed by its type id.
	Instances map[types.TypeID]any
	ABI       *abi.Program
}

// Check types the declarations of pkg. Problems go to opts.Reporter; checking
// continues with sibling declarations after an error.
func Check(ctx context.Context, pkg *ast.Package, opts Options) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	in := opts.Types
	if in == nil {
		in = types.NewInterner(nil)
	}
	ns := opts.Namespace
	if ns == nil {
		ns = namespace.InitRoot(namespace.NewRoot(pkg.Name, in))
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	res := &Result{
		Package:   pkg.Name,
		Types:     in,
		Namespace: ns,
		Instances: make(map[types.TypeID]any),
	}
	tc := &typeChecker{
		ctx:       ctx,
		pkg:       pkg,
		ns:        ns,
		types:     in,
		strs:      in.Strings(),
		reporter:  reporter,
		gen:       abi.NewGenerator(in),
		pending:   make(map[*namespace.Item]*pendingDecl),
		instances: make(map[instanceKey]types.TypeID),
		result:    res,
	}
	tc.run()
	return res
}

type typeChecker struct {
	ctx      context.Context
	pkg      *ast.Package
	ns       *namespace.Namespace
	types    *types.Interner
	strs     *source.Interner
	reporter diag.Reporter
	gen      *abi.Generator

	pending    map[*namespace.Item]*pendingDecl
	order      []*namespace.Item
	typeParams []map[string]types.TypeID
	instances  map[instanceKey]types.TypeID
	methods    []pendingMethod
	result     *Result
}

func (tc *typeChecker) run() {
	ctx, root := trace.Start(tc.ctx, trace.ScopePass, "sema")
	defer root.End(tc.pkg.Name)

	phases := []struct {
		name string
		fn   func()
	}{
		{"sema.collect", tc.collect},
		{"sema.types", tc.typeDecls},
		{"sema.storage", tc.typeStorage},
		{"sema.signatures", tc.typeSignatures},
		{"sema.impls", tc.collectImpls},
		{"sema.bodies", tc.checkBodies},
		{"sema.abi", tc.buildABI},
	}
	for _, ph := range phases {
		if tc.ctx.Err() != nil {
			return
		}
		_, span := trace.Start(ctx, trace.ScopeModule, ph.name)
		ph.fn()
		span.End("")
	}
}

func (tc *typeChecker) report(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportError(tc.reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (tc *typeChecker) warn(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportWarning(tc.reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (tc *typeChecker) name(id source.StringID) string {
	s, _ := tc.strs.Lookup(id)
	return s
}

func (tc *typeChecker) names(ids []source.StringID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = tc.name(id)
	}
	return out
}

// walkModules calls fn for every module of the package with the namespace
// cursor inside that module.
func (tc *typeChecker) walkModules(fn func(items *ast.Items)) {
	var walk func(items *ast.Items)
	walk = func(items *ast.Items) {
		fn(items)
		for i := range items.Mods {
			mod := &items.Mods[i]
			func() {
				guard := tc.ns.EnterSubmodule(tc.name(mod.Name.Name), mod.Vis, mod.Span)
				defer guard.Close()
				walk(&mod.Items)
			}()
		}
	}
	walk(&tc.pkg.Root)
}

// enterItemModule moves the cursor into the module that declares item.
func (tc *typeChecker) enterItemModule(item *namespace.Item) *namespace.SubmoduleGuard {
	return tc.ns.EnterPath(item.Path[1:])
}

func (tc *typeChecker) pushTypeParams(params map[string]types.TypeID) {
	tc.typeParams = append(tc.typeParams, params)
}

func (tc *typeChecker) popTypeParams() {
	tc.typeParams = tc.typeParams[:len(tc.typeParams)-1]
}

func (tc *typeChecker) lookupTypeParam(name string) (types.TypeID, bool) {
	for i := len(tc.typeParams) - 1; i >= 0; i-- {
		if id, ok := tc.typeParams[i][name]; ok {
			return id, true
		}
	}
	return types.NoTypeID, false
}

// declareTypeParams interns formals for idents and reports duplicates.
func (tc *typeChecker) declareTypeParams(idents []ast.Ident) ([]TypeParam, map[string]types.TypeID) {
	params := make([]TypeParam, 0, len(idents))
	scope := make(map[string]types.TypeID, len(idents))
	for _, id := range idents {
		name := tc.name(id.Name)
		if _, dup := scope[name]; dup {
			tc.report(diag.SemaDuplicateMember, id.Span, "type parameter %q is declared twice", name)
			continue
		}
		tp := TypeParam{Name: name, Type: tc.types.Intern(types.MakeGeneric(id.Name)), Span: id.Span}
		scope[name] = tp.Type
		params = append(params, tp)
	}
	return params, scope
}
