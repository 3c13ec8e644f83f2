package sema

import (
	"errors"
	"fmt"
	"strings"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/namespace"
	"quill/internal/source"
	"quill/internal/types"
)

type instanceKey struct {
	item *namespace.Item
	args string
}

func (tc *typeChecker) resolveTypeExpr(id ast.TypeExprID) types.TypeID {
	b := tc.types.Builtins()
	if !id.IsValid() {
		return b.Unit
	}
	te := tc.pkg.Types.Get(id)
	if te == nil {
		return types.NoTypeID
	}
	switch te.Kind {
	case ast.TypeExprUnit:
		return b.Unit
	case ast.TypeExprStr:
		return tc.types.Intern(types.MakeStr(te.Len))
	case ast.TypeExprArray:
		elem := tc.resolveTypeExpr(te.Elem)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		return tc.types.Intern(types.MakeArray(elem, te.Len))
	case ast.TypeExprTuple:
		elems := make([]types.TypeID, len(te.Elems))
		for i, e := range te.Elems {
			elems[i] = tc.resolveTypeExpr(e)
			if elems[i] == types.NoTypeID {
				return types.NoTypeID
			}
		}
		return tc.types.Intern(types.MakeTuple(elems...))
	case ast.TypeExprNamed:
		return tc.resolveNamed(te)
	}
	return types.NoTypeID
}

func (tc *typeChecker) primitive(name string) (types.TypeID, bool) {
	b := tc.types.Builtins()
	switch name {
	case "bool":
		return b.Bool, true
	case "u8":
		return b.U8, true
	case "u16":
		return b.U16, true
	case "u32":
		return b.U32, true
	case "u64":
		return b.U64, true
	case "b256":
		return b.B256, true
	}
	return types.NoTypeID, false
}

func (tc *typeChecker) resolveNamed(te *ast.TypeExpr) types.TypeID {
	path := tc.names(te.Path)
	if len(path) == 0 {
		return types.NoTypeID
	}
	if len(path) == 1 {
		if id, ok := tc.lookupTypeParam(path[0]); ok {
			if len(te.Args) > 0 {
				tc.report(diag.SemaTypeArgCount, te.Span, "type parameter %q does not take type arguments", path[0])
				return types.NoTypeID
			}
			return id
		}
		if id, ok := tc.primitive(path[0]); ok {
			if len(te.Args) > 0 {
				tc.report(diag.SemaTypeArgCount, te.Span, "primitive type %q does not take type arguments", path[0])
				return types.NoTypeID
			}
			return id
		}
	}
	item, ok := tc.lookupItem(path)
	if !ok {
		tc.report(diag.SemaUnknownType, te.Span, "unknown type %q", strings.Join(path, "::"))
		return types.NoTypeID
	}
	if !item.IsTypeItem() {
		diag.ReportError(tc.reporter, diag.SemaNotAType, te.Span, fmt.Sprintf("%q is a %s, not a type", item.Name, item.Kind)).
			WithNote(item.Span, "declared here").
			Emit()
		return types.NoTypeID
	}
	tc.checkVisible(item, te.Span)
	args := make([]types.TypeID, len(te.Args))
	for i, a := range te.Args {
		args[i] = tc.resolveTypeExpr(a)
		if args[i] == types.NoTypeID {
			return types.NoTypeID
		}
	}
	return tc.instantiate(item, args, te.Span)
}

// lookupItem finds a declaration by path, first relative to the current
// module, then from the package root. A leading package name is accepted.
func (tc *typeChecker) lookupItem(path []string) (*namespace.Item, bool) {
	if len(path) == 0 {
		return nil, false
	}
	qual := namespace.ModulePath(path[:len(path)-1])
	name := path[len(path)-1]
	if mod, err := tc.ns.Module().LookupSubmodule(qual); err == nil {
		if item, ok := mod.Items.Lookup(name); ok {
			return item, true
		}
	}
	if len(qual) > 0 && qual[0] == tc.ns.PackageName() {
		qual = qual[1:]
	}
	if mod, err := tc.ns.RootModule().LookupSubmodule(qual); err == nil {
		if item, ok := mod.Items.Lookup(name); ok {
			return item, true
		}
	}
	return nil, false
}

// checkVisible reports a private item used outside the module subtree that
// declares it. Private items of other packages are never visible.
func (tc *typeChecker) checkVisible(item *namespace.Item, at source.Span) bool {
	if item.Vis.IsPublic() {
		return true
	}
	if !tc.ns.ModuleIsExternal(item.Path) && tc.ns.ModuleIsSubmoduleOf(item.Path, true) {
		return true
	}
	diag.ReportError(tc.reporter, diag.SemaPrivateItem, at,
		fmt.Sprintf("%s %q is private to module %q", item.Kind, item.Name, item.Path.String())).
		WithNote(item.Span, "declared here").
		Emit()
	return false
}

func declTypeParams(decl any) []TypeParam {
	switch d := decl.(type) {
	case *StructDecl:
		return d.TypeParams
	case *EnumDecl:
		return d.TypeParams
	}
	return nil
}

func (tc *typeChecker) declTypeID(decl any) types.TypeID {
	switch d := decl.(type) {
	case *StructDecl:
		return d.TypeID(tc.types)
	case *EnumDecl:
		return d.TypeID(tc.types)
	}
	return types.NoTypeID
}

// instantiate returns the type of item applied to args. Generic declarations
// are monomorphised once per distinct argument list.
func (tc *typeChecker) instantiate(item *namespace.Item, args []types.TypeID, at source.Span) types.TypeID {
	decl := tc.resolveDecl(item, at)
	if decl == nil {
		return types.NoTypeID
	}
	params := declTypeParams(decl)
	m, err := types.NewMapping(typeParamIDs(params), args)
	if errors.Is(err, types.ErrArity) {
		tc.report(diag.SemaTypeArgCount, at, "%q expects %d type arguments, got %d", item.Name, len(params), len(args))
		return types.NoTypeID
	}
	if m.IsEmpty() {
		return tc.declTypeID(decl)
	}

	key := instanceKey{item: item, args: tc.argsKey(args)}
	if id, ok := tc.instances[key]; ok {
		return id
	}
	var id types.TypeID
	switch d := decl.(type) {
	case *StructDecl:
		mono := d.Monomorphize(tc.types, m, tc.ns)
		id = tc.types.Canonical(mono.TypeID(tc.types))
		tc.result.Instances[id] = mono
	case *EnumDecl:
		mono := d.Monomorphize(tc.types, m, tc.ns)
		id = tc.types.Canonical(mono.TypeID(tc.types))
		tc.result.Instances[id] = mono
	}
	tc.instances[key] = id
	return id
}

func (tc *typeChecker) argsKey(args []types.TypeID) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", tc.types.Canonical(a))
	}
	return sb.String()
}
