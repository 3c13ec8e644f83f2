package sema

import (
	"errors"
	"fmt"
	"strings"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/namespace"
	"quill/internal/purity"
	"quill/internal/source"
)

// checkBodies infers the purity of every function and method body and checks
// each effect against the declared purity.
func (tc *typeChecker) checkBodies() {
	for _, item := range tc.order {
		if item.Kind != namespace.ItemFn {
			continue
		}
		fn, ok := item.Decl.(*FnDecl)
		if !ok {
			continue
		}
		func() {
			guard := tc.enterItemModule(item)
			defer guard.Close()
			tc.checkBody(tc.pending[item].fnAST, fn)
		}()
	}
	for _, m := range tc.methods {
		func() {
			guard := tc.ns.EnterPath(m.path[1:])
			defer guard.Close()
			tc.checkBody(m.ast, m.decl)
		}()
	}
}

func (tc *typeChecker) checkBody(f *ast.FnDecl, fn *FnDecl) {
	effects := make([]purity.Purity, 0, len(f.Body))
	for _, e := range f.Body {
		p, ok := tc.effectPurity(e)
		if !ok {
			continue
		}
		if !purity.CanCall(fn.Declared, p) {
			tc.reportEffect(fn, e, p)
		}
		effects = append(effects, p)
	}
	fn.Inferred = purity.Fold(effects...)
	if fn.Declared != purity.Pure && fn.Inferred == purity.Pure {
		tc.warn(diag.SemaUnneededStorageAnnotation, fn.Span,
			"function %q is annotated storage(%s) but does not access storage",
			fn.Name, strings.Join(purity.StorageArgs(fn.Declared), ", "))
	}
}

func (tc *typeChecker) reportEffect(fn *FnDecl, e ast.Effect, p purity.Purity) {
	target := strings.Join(tc.names(e.Target), "::")
	var b *diag.ReportBuilder
	if e.Kind == ast.EffectCall {
		b = diag.ReportError(tc.reporter, diag.SemaPurityMismatch, e.Span,
			fmt.Sprintf("function %q is %s and cannot call %q which is %s", fn.Name, fn.Declared, target, p))
	} else {
		b = diag.ReportError(tc.reporter, diag.SemaStorageAccess, e.Span,
			fmt.Sprintf("function %q %s storage field %q without storage(%s)",
				fn.Name, verb(e.Kind), target, strings.Join(purity.StorageArgs(p), ", ")))
	}
	want := purity.Promote(fn.Declared, p)
	b.WithNote(fn.Span, fmt.Sprintf("add storage(%s) to %q", strings.Join(purity.StorageArgs(want), ", "), fn.Name)).
		Emit()
}

func verb(k ast.EffectKind) string {
	if k == ast.EffectWrite {
		return "writes"
	}
	return "reads"
}

// effectPurity returns the purity an effect requires. ok is false when the
// effect could not be resolved; the problem is already reported.
func (tc *typeChecker) effectPurity(e ast.Effect) (purity.Purity, bool) {
	path := tc.names(e.Target)
	if len(path) == 0 {
		return purity.Pure, false
	}
	switch e.Kind {
	case ast.EffectRead, ast.EffectWrite:
		p := purity.Reads
		if e.Kind == ast.EffectWrite {
			p = purity.Writes
		}
		tc.checkStorageField(path[0], e.Span)
		return p, true
	case ast.EffectCall:
		return tc.calleePurity(path, e.Span)
	case ast.EffectLog:
		tc.checkVariantPath(path, e.Span)
		return purity.Pure, true
	}
	return purity.Pure, false
}

func (tc *typeChecker) checkStorageField(name string, at source.Span) {
	if tc.result.Storage == nil {
		tc.report(diag.SemaStorageAccess, at, "storage field %q accessed but package %q declares no storage", name, tc.pkg.Name)
		return
	}
	if _, err := tc.result.Storage.FieldByName(name); err != nil {
		tc.reportMember(err, at)
	}
}

func (tc *typeChecker) reportMember(err error, at source.Span) {
	var unknown *UnknownMemberError
	if errors.As(err, &unknown) {
		unknown.Report(tc.reporter, at)
		return
	}
	tc.report(diag.SemaError, at, "%v", err)
}

// calleePurity resolves a call target: Type::method through the method
// registry, anything else as a function item.
func (tc *typeChecker) calleePurity(path []string, at source.Span) (purity.Purity, bool) {
	if len(path) >= 2 {
		if owner, ok := tc.lookupItem(path[:len(path)-1]); ok && owner.IsTypeItem() {
			tc.checkVisible(owner, at)
			m, err := tc.lookupMethod(owner, path[len(path)-1])
			if err != nil {
				tc.report(diag.SemaUnknownFunction, at, "%v", err)
				return purity.Pure, false
			}
			return m.Declared, true
		}
	}
	item, ok := tc.lookupItem(path)
	if !ok {
		tc.report(diag.SemaUnknownFunction, at, "unknown function %q", strings.Join(path, "::"))
		return purity.Pure, false
	}
	fn, isFn := item.Decl.(*FnDecl)
	if item.Kind != namespace.ItemFn || !isFn {
		tc.report(diag.SemaUnknownFunction, at, "%q is a %s, not a function", item.Name, item.Kind)
		return purity.Pure, false
	}
	tc.checkVisible(item, at)
	return fn.Declared, true
}

func (tc *typeChecker) checkVariantPath(path []string, at source.Span) {
	if len(path) < 2 {
		tc.report(diag.SemaUnknownVariant, at, "expected Enum::Variant, got %q", strings.Join(path, "::"))
		return
	}
	item, ok := tc.lookupItem(path[:len(path)-1])
	if !ok || item.Kind != namespace.ItemEnum {
		tc.report(diag.SemaUnknownType, at, "unknown enum %q", strings.Join(path[:len(path)-1], "::"))
		return
	}
	tc.checkVisible(item, at)
	decl, ok := tc.resolveDecl(item, at).(*EnumDecl)
	if !ok {
		return
	}
	if _, err := decl.VariantByName(path[len(path)-1]); err != nil {
		tc.reportMember(err, at)
	}
}
