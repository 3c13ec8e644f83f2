package dag

import (
	"fmt"
	"slices"
	"strings"

	"quill/internal/diag"
	"quill/internal/project"
)

// Node is a loaded package handed to New.
type Node struct {
	Meta     project.PackageMeta
	Reporter diag.Reporter
}

// Slot is the state of one package name. Names that are only mentioned as
// dependencies get a slot with Present unset.
type Slot struct {
	Meta     project.PackageMeta
	Reporter diag.Reporter
	Present  bool
	Broken   bool
	FirstErr *diag.Diagnostic // first error of the package or, failing that, of a dependency
}

// Graph is the dependency graph of a session. Edges go from a package to
// its dependencies.
type Graph struct {
	Index PackageIndex
	Slots []Slot
	Edges [][]PackageID
	indeg []int // только от присутствующих пакетов
}

// New indexes nodes and links them. Duplicate names, self dependencies and
// missing dependencies are reported through the node reporters.
func New(nodes []Node) *Graph {
	metas := make([]project.PackageMeta, len(nodes))
	for i, n := range nodes {
		metas[i] = n.Meta
	}
	idx := BuildIndex(metas)
	g := &Graph{
		Index: idx,
		Slots: make([]Slot, len(idx.IDToName)),
		Edges: make([][]PackageID, len(idx.IDToName)),
		indeg: make([]int, len(idx.IDToName)),
	}
	for i, name := range idx.IDToName {
		g.Slots[i].Meta.Name = name
	}
	for _, n := range nodes {
		g.place(n)
	}
	for from := range g.Slots {
		g.link(packageID(from))
	}
	return g
}

func (g *Graph) place(n Node) {
	id, ok := g.Lookup(n.Meta.Name)
	if !ok {
		return
	}
	slot := &g.Slots[id]
	if slot.Present {
		if n.Reporter != nil {
			b := diag.ReportError(n.Reporter, diag.ProjDuplicatePackage, n.Meta.Span,
				fmt.Sprintf("package name %q is used by both %s and %s", n.Meta.Name, slot.Meta.Dir, n.Meta.Dir))
			if !slot.Meta.Span.IsZero() {
				b.WithNote(slot.Meta.Span, fmt.Sprintf("previous declaration of %q", n.Meta.Name))
			}
			b.Emit()
		}
		return
	}
	*slot = Slot{Meta: n.Meta, Reporter: n.Reporter, Present: true}
}

func (g *Graph) link(from PackageID) {
	slot := &g.Slots[from]
	if !slot.Present {
		return
	}
	for _, dep := range slot.Meta.Deps {
		to, ok := g.Lookup(dep.Name)
		if !ok {
			continue
		}
		if to == from {
			g.report(slot, diag.ProjSelfDependency, dep, fmt.Sprintf("package %q depends on itself", slot.Meta.Name))
			continue
		}
		if slices.Contains(g.Edges[from], to) {
			continue
		}
		g.Edges[from] = append(g.Edges[from], to)
		if g.Slots[to].Present {
			g.indeg[to]++
		} else {
			g.report(slot, diag.ProjMissingDependency, dep,
				fmt.Sprintf("package %q depends on missing package %q", slot.Meta.Name, dep.Name))
		}
	}
	slices.Sort(g.Edges[from])
}

func (g *Graph) report(slot *Slot, code diag.Code, dep project.DependencyMeta, msg string) {
	if slot.Reporter != nil {
		diag.ReportError(slot.Reporter, code, dep.Span, msg).Emit()
	}
}

// Lookup returns the id of a package name known to the graph.
func (g *Graph) Lookup(name string) (PackageID, bool) {
	if name == "" {
		return 0, false
	}
	id, ok := g.Index.NameToID[name]
	return id, ok
}

// ReportCycles reports every package left in a cycle by topo.
func (g *Graph) ReportCycles(topo *Topo) {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	summary := strings.Join(g.Index.Names(topo.Cycles), " -> ")
	for _, id := range topo.Cycles {
		slot := &g.Slots[id]
		if !slot.Present || slot.Reporter == nil {
			continue
		}
		msg := fmt.Sprintf("package %q participates in a dependency cycle: %s", slot.Meta.Name, summary)
		diag.ReportError(slot.Reporter, diag.ProjDependencyCycle, slot.Meta.Span, msg).Emit()
	}
}

// MarkBroken records the outcome of checking a package.
func (g *Graph) MarkBroken(name string, broken bool, first *diag.Diagnostic) {
	if id, ok := g.Lookup(name); ok {
		g.Slots[id].Broken = broken
		g.Slots[id].FirstErr = first
	}
}

// PropagateBroken walks order (dependencies first) and lets packages without
// an error of their own inherit the first error of a broken dependency.
func (g *Graph) PropagateBroken(order []PackageID) {
	for _, id := range order {
		slot := &g.Slots[id]
		for _, to := range g.Edges[id] {
			dep := &g.Slots[to]
			if !dep.Broken {
				continue
			}
			slot.Broken = true
			if slot.FirstErr == nil {
				slot.FirstErr = dep.FirstErr
			}
		}
	}
}

// ReportBrokenDeps reports, at each dependency entry, the first error of a broken dependency.
func (g *Graph) ReportBrokenDeps() {
	for from := range g.Slots {
		slot := &g.Slots[from]
		if !slot.Present || slot.Reporter == nil {
			continue
		}
		for _, dep := range slot.Meta.Deps {
			to, ok := g.Lookup(dep.Name)
			if !ok || to == packageID(from) {
				continue
			}
			target := &g.Slots[to]
			if !target.Present || !target.Broken {
				continue
			}
			b := diag.ReportError(slot.Reporter, diag.ProjDependencyFailed, dep.Span,
				fmt.Sprintf("dependency %q has errors", dep.Name))
			if target.FirstErr != nil {
				b.WithNote(target.FirstErr.Primary, fmt.Sprintf("first error in dependency: %s", target.FirstErr.Message))
			}
			b.Emit()
		}
	}
}
