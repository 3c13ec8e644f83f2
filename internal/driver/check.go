package driver

import (
	"context"
	"crypto/sha256"
	"fmt"
	"slices"

	"quill/internal/diag"
	"quill/internal/namespace"
	"quill/internal/project"
	"quill/internal/project/dag"
	"quill/internal/sema"
	"quill/internal/trace"
)

// Check finds the project containing dir and checks it together with its dependencies.
func Check(ctx context.Context, dir string, opts Options) (*Result, error) {
	return NewSession(opts).Check(ctx, dir)
}

// Check finds the project containing dir and checks it in this session.
// Only a missing or unreadable root manifest is returned as an error;
// everything else ends up in Result.Bag.
func (s *Session) Check(ctx context.Context, dir string) (*Result, error) {
	m, err := findRoot(dir)
	if err != nil {
		return nil, err
	}
	return s.CheckManifest(ctx, m)
}

// CheckManifest checks the package described by m.
func (s *Session) CheckManifest(ctx context.Context, m *project.Manifest) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = trace.WithSession(ctx, s.ID.String())
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "session")
	span.WithExtra("package", m.Name())
	defer span.End(m.Root)

	s.Files.SetBaseDir(m.Root)
	done := s.timer.Begin("load", "")
	root := s.loadPackage(ctx, m)
	done()
	res := &Result{SessionID: s.ID, Files: s.Files, Root: root}
	defer func() { res.Timings = s.timer.Report() }()

	done = s.timer.Begin("graph", "")
	g := s.buildGraph()
	done()
	res.Packages = g.order
	var key project.Digest
	if !g.cyclic {
		s.computeHashes(g)
		key = s.cacheKey(root)
		done = s.timer.Begin("cache.restore", "")
		hit := s.restore(key, res)
		done()
		if hit {
			trace.Mark(ctx, trace.ScopePass, "cache.hit", root.Meta.Hash.String())
			return res, nil
		}
		if err := s.checkPackages(ctx, g); err != nil {
			return nil, err
		}
		g.reportBrokenDeps()
	}

	res.Bag = s.mergeBags()
	if root.Result != nil {
		res.ABI = root.Result.ABI
		res.Namespace = root.Result.Namespace
	}
	if !g.cyclic {
		done = s.timer.Begin("cache.store", "")
		if err := s.store(key, res); err != nil {
			trace.Mark(ctx, trace.ScopePass, "cache.error", err.Error())
		}
		done()
	}
	return res, nil
}

// graph is the package graph of a session.
type graph struct {
	dag    *dag.Graph
	topo   *dag.Topo
	order  []*Package // зависимости раньше зависящих
	byName map[string]*Package
	cyclic bool
}

func (s *Session) buildGraph() *graph {
	nodes := make([]dag.Node, len(s.packages))
	byName := make(map[string]*Package, len(s.packages))
	for i, p := range s.packages {
		nodes[i] = dag.Node{Meta: p.Meta, Reporter: diag.BagReporter{Bag: p.Bag}}
		if _, dup := byName[p.Name()]; !dup {
			byName[p.Name()] = p
		}
	}
	g := dag.New(nodes)
	topo := g.Sort()
	g.ReportCycles(topo)

	out := &graph{dag: g, topo: topo, byName: byName, cyclic: topo.Cyclic}
	if topo.Cyclic {
		out.order = slices.Clone(s.packages)
		return out
	}
	for _, id := range topo.DepsFirst() {
		if p, ok := byName[g.Index.IDToName[id]]; ok {
			out.order = append(out.order, p)
		}
	}
	return out
}

// computeHashes folds dependency hashes into every package hash.
func (s *Session) computeHashes(g *graph) {
	for _, p := range g.order {
		deps := make([]project.Digest, 0, len(p.Meta.Deps))
		for _, dep := range p.Meta.Deps {
			if d, ok := g.byName[dep.Name]; ok {
				deps = append(deps, d.Meta.Hash)
			}
		}
		p.Meta.Hash = project.Combine(p.Meta.ContentHash, deps...)
	}
}

func (s *Session) checkPackages(ctx context.Context, g *graph) error {
	for _, p := range g.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.checkPackage(ctx, g, p)
	}
	return nil
}

// checkPackage checks p with its already checked dependencies attached to
// the root of its module tree.
func (s *Session) checkPackage(ctx context.Context, g *graph, p *Package) {
	defer s.timer.Begin("check", p.Name())()
	ctx, span := trace.Start(ctx, trace.ScopePass, "package")
	span.WithExtra("package", p.Name())
	defer span.End(p.Meta.Hash.String())

	reporter := diag.BagReporter{Bag: p.Bag}
	root := namespace.NewRoot(p.Name(), s.Types)
	for _, dep := range p.Meta.Deps {
		d, ok := g.byName[dep.Name]
		if !ok || d.Result == nil {
			continue
		}
		if d.Broken {
			p.Broken = true
		}
		if err := root.Attach(d.Result.Namespace.Root()); err != nil {
			diag.ReportError(reporter, diag.ProjManifest, dep.Span, fmt.Sprintf("cannot attach dependency %q: %v", dep.Name, err)).Emit()
		}
	}

	p.Result = sema.Check(ctx, p.AST, sema.Options{
		Reporter:  reporter,
		Types:     s.Types,
		Namespace: namespace.InitRoot(root),
	})
	if s.opts.WarningsAsErrors || p.Manifest.Config.Check.WarningsAsErrors {
		p.Bag.PromoteWarnings()
	}
	if p.Bag.HasErrors() {
		p.Broken = true
	}
}

// reportBrokenDeps tells every package which of its dependencies failed.
func (g *graph) reportBrokenDeps() {
	for _, p := range g.order {
		g.dag.MarkBroken(p.Name(), p.Broken, p.FirstError())
	}
	g.dag.PropagateBroken(g.topo.DepsFirst())
	g.dag.ReportBrokenDeps()
}

func (s *Session) mergeBags() *diag.Bag {
	bag := diag.NewBag(0)
	for _, p := range s.packages {
		bag.Merge(p.Bag)
	}
	bag.Dedup()
	bag.Sort()
	return bag
}

// cacheKey covers the content of the whole graph and every option that
// changes the diagnostics.
func (s *Session) cacheKey(root *Package) project.Digest {
	opts := fmt.Sprintf("schema=%d max=%d werror=%t", diskCacheSchemaVersion, s.opts.MaxDiagnostics, s.opts.WarningsAsErrors)
	return project.Combine(root.Meta.Hash, sha256.Sum256([]byte(opts)))
}
