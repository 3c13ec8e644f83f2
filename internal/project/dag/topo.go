package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type Topo struct {
	Order   []PackageID   // зависимые раньше зависимостей (только реальные пакеты)
	Batches [][]PackageID // волны независимых пакетов
	Cyclic  bool
	Cycles  []PackageID // узлы, оставшиеся в цикле
}

// DepsFirst returns Order reversed, so every package follows its dependencies.
func (t *Topo) DepsFirst() []PackageID {
	out := slices.Clone(t.Order)
	slices.Reverse(out)
	return out
}

// Sort orders the present packages with Kahn's algorithm. Packages of one
// batch do not depend on each other.
func (g *Graph) Sort() *Topo {
	indeg := slices.Clone(g.indeg)
	topo := &Topo{Order: make([]PackageID, 0, len(g.Slots))}

	var current []PackageID
	active := 0
	for i := range g.Slots {
		if !g.Slots[i].Present {
			continue
		}
		active++
		if indeg[i] == 0 {
			current = append(current, packageID(i))
		}
	}

	for len(current) > 0 {
		topo.Batches = append(topo.Batches, current)
		var next []PackageID
		for _, id := range current {
			topo.Order = append(topo.Order, id)
			for _, to := range g.Edges[id] {
				if !g.Slots[to].Present {
					continue
				}
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != active {
		topo.Cyclic = true
		for i := range g.Slots {
			if g.Slots[i].Present && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, packageID(i))
			}
		}
	}
	return topo
}

func packageID(i int) PackageID {
	id, err := safecast.Conv[PackageID](i)
	if err != nil {
		panic(fmt.Errorf("package id overflow: %w", err))
	}
	return id
}
