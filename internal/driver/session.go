package driver

import (
	"github.com/google/uuid"

	"quill/internal/abi"
	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/namespace"
	"quill/internal/observ"
	"quill/internal/project"
	"quill/internal/sema"
	"quill/internal/source"
	"quill/internal/types"
)

// Options configure a check session.
type Options struct {
	// MaxDiagnostics caps the diagnostics kept per package; 0 uses the
	// manifest's [check] value, and that being 0 too means unlimited.
	MaxDiagnostics int
	// WarningsAsErrors promotes warnings of every package; the manifest's
	// [check] setting can only turn it on.
	WarningsAsErrors bool
	// Cache stores results by content hash. nil disables caching.
	Cache *DiskCache
	// Timings records how long every phase of the session took.
	Timings bool
}

// Session owns the state shared by a package and its dependencies: one file
// set and one type table, so types from different packages compare by id.
type Session struct {
	ID      uuid.UUID
	Files   *source.FileSet
	Strings *source.Interner
	Types   *types.Interner

	opts     Options
	timer    *observ.Timer // nil without Options.Timings
	byPath   map[string]*Package // manifest path -> package
	packages []*Package          // порядок загрузки
}

// Package is one loaded package of a session.
type Package struct {
	Manifest *project.Manifest
	Meta     project.PackageMeta
	AST      *ast.Package
	Bag      *diag.Bag
	Result   *sema.Result
	// Broken is set when the package or one of its dependencies has errors.
	Broken bool
}

// Name returns the package name.
func (p *Package) Name() string { return p.Meta.Name }

// FirstError returns the first error diagnostic of the package, if any.
func (p *Package) FirstError() *diag.Diagnostic {
	if p.Bag == nil {
		return nil
	}
	items := p.Bag.Items()
	for i := range items {
		if items[i].Severity >= diag.SevError {
			return &items[i]
		}
	}
	return nil
}

// Result is the outcome of checking one project.
type Result struct {
	SessionID uuid.UUID
	Files     *source.FileSet
	Root      *Package
	// Packages lists every loaded package, dependencies first when the
	// graph is acyclic.
	Packages []*Package
	// Bag holds the diagnostics of all packages, sorted by location.
	Bag *diag.Bag
	ABI *abi.Program
	// Namespace is the module tree of the root package; nil when the root
	// was not checked or the result came from the cache.
	Namespace *namespace.Namespace
	Cached    bool
	// Timings is empty unless Options.Timings was set.
	Timings observ.Report
}

// HasErrors reports whether the project failed to check.
func (r *Result) HasErrors() bool {
	return r != nil && r.Bag != nil && r.Bag.HasErrors()
}

// NewSession creates an empty session.
func NewSession(opts Options) *Session {
	strs := source.NewInterner()
	s := &Session{
		ID:      uuid.New(),
		Files:   source.NewFileSet(),
		Strings: strs,
		Types:   types.NewInterner(strs),
		opts:    opts,
		byPath:  make(map[string]*Package),
	}
	if opts.Timings {
		s.timer = observ.NewTimer()
	}
	return s
}
