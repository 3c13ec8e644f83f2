package namespace

import (
	"quill/internal/ast"
	"quill/internal/source"
	"quill/internal/types"
)

// Root is the top of a package's module tree plus its method registry.
type Root struct {
	Module  *Module
	Methods *MethodTable
}

// NewRoot creates the root of package name. Methods are keyed by canonical
// ids of in.
func NewRoot(name string, in *types.Interner) *Root {
	return &Root{
		Module:  NewModule(name, ast.VisPublic, source.Span{}),
		Methods: NewMethodTable(in),
	}
}

func (r *Root) Clone() *Root {
	return &Root{
		Module:  r.Module.Clone(),
		Methods: r.Methods.Clone(),
	}
}

// Attach adds a copy of another package's module tree as a child and merges
// its methods. The child becomes external when the namespace is initialised
// from r.
func (r *Root) Attach(dep *Root) error {
	mod := dep.Module.Clone()
	if err := r.Module.AttachSubmodule(mod); err != nil {
		return err
	}
	r.Methods.Merge(dep.Methods)
	return nil
}
