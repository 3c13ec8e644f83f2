package sema

import (
	"fmt"

	"fortio.org/safecast"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/namespace"
	"quill/internal/purity"
	"quill/internal/source"
	"quill/internal/types"
)

type resolveState uint8

const (
	stateUnresolved resolveState = iota
	stateResolving
	stateDone
)

// pendingDecl is a declaration of this package waiting to be typed.
type pendingDecl struct {
	state     resolveState
	structAST *ast.StructDecl
	enumAST   *ast.EnumDecl
	fnAST     *ast.FnDecl
}

type pendingMethod struct {
	ast  *ast.FnDecl
	decl *FnDecl
	path namespace.ModulePath
}

// collect registers every declaration in its module before anything is typed,
// so references may point forward.
func (tc *typeChecker) collect() {
	tc.walkModules(func(items *ast.Items) {
		for i := range items.Structs {
			s := &items.Structs[i]
			tc.declare(namespace.ItemStruct, s.Name, s.Vis, s.Span, &pendingDecl{structAST: s})
		}
		for i := range items.Enums {
			e := &items.Enums[i]
			tc.declare(namespace.ItemEnum, e.Name, e.Vis, e.Span, &pendingDecl{enumAST: e})
		}
		for i := range items.Fns {
			f := &items.Fns[i]
			tc.declare(namespace.ItemFn, f.Name, f.Vis, f.Span, &pendingDecl{fnAST: f})
		}
	})
}

func (tc *typeChecker) declare(kind namespace.ItemKind, name ast.Ident, vis ast.Visibility, span source.Span, pd *pendingDecl) {
	item := &namespace.Item{
		Kind: kind,
		Name: tc.name(name.Name),
		Vis:  vis,
		Span: span,
		Path: tc.ns.AbsolutePath(),
	}
	prev, err := tc.ns.Items().Insert(item)
	if err != nil {
		diag.ReportError(tc.reporter, diag.SemaDuplicateItem, name.Span,
			fmt.Sprintf("the name %q is defined multiple times in module %q", item.Name, item.Path.String())).
			WithNote(prev.Span, fmt.Sprintf("previous definition of %q", item.Name)).
			Emit()
		return
	}
	tc.pending[item] = pd
	tc.order = append(tc.order, item)
}

func (tc *typeChecker) typeDecls() {
	for _, item := range tc.order {
		if item.IsTypeItem() {
			tc.resolveDecl(item, item.Span)
		}
	}
}

// resolveDecl types a struct or enum on first use. Declarations of other
// packages arrive already typed. A reference back into a declaration that is
// still being typed is a recursive type.
func (tc *typeChecker) resolveDecl(item *namespace.Item, at source.Span) any {
	if item.Decl != nil {
		return item.Decl
	}
	pd, ok := tc.pending[item]
	if !ok {
		return nil
	}
	switch pd.state {
	case stateResolving:
		tc.report(diag.SemaRecursiveType, at, "recursive type %q contains itself", item.Name)
		return nil
	case stateDone:
		return item.Decl
	}
	pd.state = stateResolving
	defer func() { pd.state = stateDone }()

	guard := tc.enterItemModule(item)
	defer guard.Close()
	saved := tc.typeParams
	tc.typeParams = nil
	defer func() { tc.typeParams = saved }()

	switch {
	case pd.structAST != nil:
		decl := tc.typeStruct(pd.structAST)
		item.Decl = decl
		tc.result.Structs = append(tc.result.Structs, decl)
	case pd.enumAST != nil:
		decl := tc.typeEnum(pd.enumAST)
		item.Decl = decl
		tc.result.Enums = append(tc.result.Enums, decl)
	}
	return item.Decl
}

func (tc *typeChecker) typeStruct(s *ast.StructDecl) *StructDecl {
	params, scope := tc.declareTypeParams(s.TypeParams)
	tc.pushTypeParams(scope)
	defer tc.popTypeParams()
	return &StructDecl{
		Name:       tc.name(s.Name.Name),
		Fields:     tc.typeFields(s.Fields),
		TypeParams: params,
		Visibility: s.Vis,
		Span:       s.Span,
	}
}

func (tc *typeChecker) typeFields(fields []ast.Field) []StructField {
	out := make([]StructField, 0, len(fields))
	seen := make(map[string]source.Span, len(fields))
	for _, f := range fields {
		name := tc.name(f.Name.Name)
		if prev, dup := seen[name]; dup {
			diag.ReportError(tc.reporter, diag.SemaDuplicateMember, f.Name.Span, fmt.Sprintf("field %q is declared twice", name)).
				WithNote(prev, "first declared here").
				Emit()
			continue
		}
		seen[name] = f.Name.Span
		out = append(out, StructField{Name: name, Type: tc.resolveTypeExpr(f.Type), Span: f.Span})
	}
	return out
}

func (tc *typeChecker) typeEnum(e *ast.EnumDecl) *EnumDecl {
	params, scope := tc.declareTypeParams(e.TypeParams)
	tc.pushTypeParams(scope)
	defer tc.popTypeParams()

	variants := make([]EnumVariant, 0, len(e.Variants))
	seen := make(map[string]source.Span, len(e.Variants))
	for _, v := range e.Variants {
		name := tc.name(v.Name.Name)
		if prev, dup := seen[name]; dup {
			diag.ReportError(tc.reporter, diag.SemaDuplicateMember, v.Name.Span, fmt.Sprintf("variant %q is declared twice", name)).
				WithNote(prev, "first declared here").
				Emit()
			continue
		}
		seen[name] = v.Name.Span
		tag, err := safecast.Conv[uint32](len(variants))
		if err != nil {
			panic(fmt.Errorf("variant tag overflow: %w", err))
		}
		variants = append(variants, EnumVariant{
			Name: name,
			Type: tc.resolveTypeExpr(v.Type),
			Tag:  tag,
			Span: v.Span,
		})
	}
	return &EnumDecl{
		Name:       tc.name(e.Name.Name),
		Variants:   variants,
		TypeParams: params,
		Visibility: e.Vis,
		Span:       e.Span,
	}
}

func (tc *typeChecker) typeStorage() {
	st := tc.pkg.Storage
	if st == nil {
		return
	}
	tc.result.Storage = &StructDecl{
		Name:       "Storage",
		Fields:     tc.typeFields(st.Fields),
		Visibility: ast.VisPrivate,
		Span:       st.Span,
	}
}

func (tc *typeChecker) typeSignatures() {
	for _, item := range tc.order {
		if item.Kind != namespace.ItemFn {
			continue
		}
		pd := tc.pending[item]
		func() {
			guard := tc.enterItemModule(item)
			defer guard.Close()
			fn := tc.typeFn(pd.fnAST, types.NoTypeID)
			item.Decl = fn
			pd.state = stateDone
			tc.result.Fns = append(tc.result.Fns, fn)
		}()
	}
}

// typeFn types a signature in the current module and type parameter scope.
func (tc *typeChecker) typeFn(f *ast.FnDecl, receiver types.TypeID) *FnDecl {
	params := make([]FnParam, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, FnParam{
			Name: tc.name(p.Name.Name),
			Type: tc.resolveTypeExpr(p.Type),
			Span: p.Span,
		})
	}
	return &FnDecl{
		Name:       tc.name(f.Name.Name),
		Params:     params,
		Returns:    tc.resolveTypeExpr(f.Returns),
		Visibility: f.Vis,
		Declared:   tc.declaredPurity(f),
		Receiver:   receiver,
		Span:       f.Span,
	}
}

// declaredPurity reads the storage annotation; no annotation means Pure.
func (tc *typeChecker) declaredPurity(f *ast.FnDecl) purity.Purity {
	declared := purity.Pure
	found := false
	for _, attr := range f.Attrs {
		if tc.name(attr.Name.Name) != "storage" {
			continue
		}
		if found {
			tc.report(diag.SemaInvalidStorageAttr, attr.Span, "duplicate storage annotation on %q", tc.name(f.Name.Name))
			continue
		}
		found = true
		args := make([]string, len(attr.Args))
		for i, a := range attr.Args {
			args[i] = tc.name(a.Name)
		}
		p, err := purity.FromStorageAttr(args)
		if err != nil {
			tc.report(diag.SemaInvalidStorageAttr, attr.Span, "invalid storage annotation on %q: %v", tc.name(f.Name.Name), err)
			continue
		}
		declared = p
	}
	return declared
}
