package sema

import (
	"quill/internal/abi"
	"quill/internal/namespace"
)

// buildABI describes the public functions of the root module and every
// concrete type declared in the package.
func (tc *typeChecker) buildABI() {
	prog := &abi.Program{
		Package:   tc.pkg.Name,
		Types:     []abi.Property{},
		Functions: []abi.Function{},
	}
	for _, d := range tc.result.Structs {
		if len(d.TypeParams) > 0 {
			continue
		}
		id := d.TypeID(tc.types)
		prog.Types = append(prog.Types, abi.Property{Name: d.Name, Type: tc.gen.TypeString(id), Components: d.ABI(tc.gen)})
	}
	for _, d := range tc.result.Enums {
		if len(d.TypeParams) > 0 {
			continue
		}
		id := d.TypeID(tc.types)
		prog.Types = append(prog.Types, abi.Property{Name: d.Name, Type: tc.gen.TypeString(id), Components: d.ABI(tc.gen)})
	}
	for _, item := range tc.order {
		if item.Kind != namespace.ItemFn || len(item.Path) != 1 || !item.Vis.IsPublic() {
			continue
		}
		if fn, ok := item.Decl.(*FnDecl); ok {
			prog.Functions = append(prog.Functions, fn.ABI(tc.gen))
		}
	}
	tc.result.ABI = prog
}
