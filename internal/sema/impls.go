package sema

import (
	"errors"
	"fmt"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/namespace"
	"quill/internal/types"
)

func (tc *typeChecker) collectImpls() {
	tc.walkModules(func(items *ast.Items) {
		for i := range items.Impls {
			tc.collectImpl(&items.Impls[i])
		}
	})
}

func (tc *typeChecker) collectImpl(impl *ast.ImplDecl) {
	target, scope := tc.resolveImplTarget(impl)
	if target == types.NoTypeID {
		return
	}
	tc.pushTypeParams(scope)
	defer tc.popTypeParams()

	for i := range impl.Methods {
		m := &impl.Methods[i]
		fn := tc.typeFn(m, target)
		err := tc.ns.Methods().Add(target, namespace.Method{
			Name:    fn.Name,
			Params:  fn.ParamTypes(),
			Returns: fn.Returns,
			Purity:  fn.Declared,
			Span:    fn.Span,
			Path:    tc.ns.AbsolutePath(),
			Decl:    fn,
		})
		if errors.Is(err, namespace.ErrDuplicateMethod) {
			tc.report(diag.SemaDuplicateMethod, m.Name.Span, "method %q is already defined for %s", fn.Name, tc.types.String(target))
			continue
		}
		tc.methods = append(tc.methods, pendingMethod{ast: m, decl: fn, path: tc.ns.AbsolutePath()})
		tc.result.Methods = append(tc.result.Methods, fn)
	}
}

// resolveImplTarget resolves the type an impl block extends. When the block
// is generic over exactly the parameters of the target (impl<U> Wrapper<U>),
// the methods go to the generic declaration itself and U is bound to the
// declaration's own formal, so instantiations pick them up.
func (tc *typeChecker) resolveImplTarget(impl *ast.ImplDecl) (types.TypeID, map[string]types.TypeID) {
	if target, scope, ok := tc.genericImplTarget(impl); ok {
		return target, scope
	}
	_, scope := tc.declareTypeParams(impl.TypeParams)
	tc.pushTypeParams(scope)
	defer tc.popTypeParams()
	return tc.resolveTypeExpr(impl.Target), scope
}

func (tc *typeChecker) genericImplTarget(impl *ast.ImplDecl) (types.TypeID, map[string]types.TypeID, bool) {
	te := tc.pkg.Types.Get(impl.Target)
	if te == nil || te.Kind != ast.TypeExprNamed || len(te.Args) == 0 || len(te.Args) != len(impl.TypeParams) {
		return types.NoTypeID, nil, false
	}
	own := make(map[string]bool, len(impl.TypeParams))
	for _, p := range impl.TypeParams {
		own[tc.name(p.Name)] = true
	}
	argNames := make([]string, len(te.Args))
	for i, a := range te.Args {
		at := tc.pkg.Types.Get(a)
		if at == nil || at.Kind != ast.TypeExprNamed || len(at.Path) != 1 || len(at.Args) != 0 {
			return types.NoTypeID, nil, false
		}
		name := tc.name(at.Path[0])
		if !own[name] {
			return types.NoTypeID, nil, false
		}
		delete(own, name)
		argNames[i] = name
	}
	item, ok := tc.lookupItem(tc.names(te.Path))
	if !ok || !item.IsTypeItem() {
		return types.NoTypeID, nil, false
	}
	decl := tc.resolveDecl(item, te.Span)
	params := declTypeParams(decl)
	if decl == nil || len(params) != len(argNames) {
		return types.NoTypeID, nil, false
	}
	tc.checkVisible(item, te.Span)
	scope := make(map[string]types.TypeID, len(params))
	for i, name := range argNames {
		scope[name] = params[i].Type
	}
	return tc.declTypeID(decl), scope, true
}

// lookupMethod finds Type::method in the method registry.
func (tc *typeChecker) lookupMethod(item *namespace.Item, method string) (FnDecl, error) {
	decl := tc.resolveDecl(item, item.Span)
	if decl == nil {
		return FnDecl{}, fmt.Errorf("type %q could not be resolved", item.Name)
	}
	m, ok := tc.ns.Methods().Method(tc.declTypeID(decl), method)
	if !ok {
		return FnDecl{}, fmt.Errorf("type %q has no method %q", item.Name, method)
	}
	if fn, ok := m.Decl.(*FnDecl); ok {
		return *fn, nil
	}
	return FnDecl{Name: m.Name, Declared: m.Purity}, nil
}
