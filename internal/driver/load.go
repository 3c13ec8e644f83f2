package driver

import (
	"context"
	"errors"
	"fmt"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/project"
	"quill/internal/source"
	"quill/internal/trace"
)

// ErrNoManifest is returned when no quill.toml is found above the start directory.
var ErrNoManifest = errors.New("no " + project.ManifestName + " found")

// findRoot locates and parses the manifest of the project containing dir.
func findRoot(dir string) (*project.Manifest, error) {
	path, ok, err := project.FindManifest(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w in %s or its parents", ErrNoManifest, dir)
	}
	return project.LoadManifest(path)
}

// loadPackage reads m and, recursively, every package it depends on.
// Problems become diagnostics of the package that mentions them.
func (s *Session) loadPackage(ctx context.Context, m *project.Manifest) *Package {
	if p, ok := s.byPath[m.Path]; ok {
		return p
	}
	ctx, span := trace.Start(ctx, trace.ScopePass, "load")
	span.WithExtra("package", m.Name())
	defer span.End(m.Root)

	bag := diag.NewBag(s.maxDiagnostics(m))
	reporter := diag.BagReporter{Bag: bag}
	loader := project.NewLoader(s.Files, s.Strings, reporter)
	p := &Package{Manifest: m, Bag: bag}
	s.byPath[m.Path] = p
	s.packages = append(s.packages, p)

	at, err := loader.ManifestSpan(m)
	if err != nil {
		diag.ReportError(reporter, diag.ProjManifest, source.Span{}, err.Error()).Emit()
	}
	pkg, err := loader.LoadPackage(m)
	if err != nil {
		diag.ReportError(reporter, diag.ProjManifest, at, err.Error()).Emit()
		pkg = ast.NewPackage(m.Name())
	}
	p.AST = pkg
	p.Meta = project.NewPackageMeta(m.Name(), m.Root, at, s.Files, pkg.Files)

	for _, name := range m.DependencyNames() {
		depAt := loader.DependencySpan(at, name)
		dep, err := m.ResolveDependency(name)
		if err != nil {
			diag.ReportError(reporter, diag.ProjMissingDependency, depAt, err.Error()).Emit()
			continue
		}
		dm, err := project.LoadManifest(dep.Manifest)
		if err != nil {
			diag.ReportError(reporter, diag.ProjManifest, depAt, fmt.Sprintf("dependency %q: %v", name, err)).Emit()
			continue
		}
		if dm.Name() != name {
			diag.ReportError(reporter, diag.ProjManifest, depAt,
				fmt.Sprintf("dependency %q resolves to package %q in %s", name, dm.Name(), dep.Dir)).Emit()
			continue
		}
		p.Meta.Deps = append(p.Meta.Deps, project.DependencyMeta{Name: name, Dir: dep.Dir, Span: depAt})
		s.loadPackage(ctx, dm)
	}
	return p
}

func (s *Session) maxDiagnostics(m *project.Manifest) int {
	if s.opts.MaxDiagnostics > 0 {
		return s.opts.MaxDiagnostics
	}
	return m.Config.Check.MaxDiagnostics
}
