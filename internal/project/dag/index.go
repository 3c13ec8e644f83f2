package dag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"quill/internal/project"
)

type PackageID uint32

type PackageIndex struct {
	NameToID map[string]PackageID
	IDToName []string
}

// собрать уникальные имена пакетов и зависимостей, sort.Strings, раздать ID по порядку
func BuildIndex(metas []project.PackageMeta) PackageIndex {
	uniq := make(map[string]struct{}, len(metas))
	for _, meta := range metas {
		if meta.Name != "" {
			uniq[meta.Name] = struct{}{}
		}
		for _, dep := range meta.Deps {
			if dep.Name == "" {
				continue
			}
			uniq[dep.Name] = struct{}{}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]PackageID, len(names))
	for i, name := range names {
		id, err := safecast.Conv[PackageID](i)
		if err != nil {
			panic(fmt.Errorf("package id overflow: %w", err))
		}
		nameToID[name] = id
	}

	return PackageIndex{
		NameToID: nameToID,
		IDToName: names,
	}
}

// Names maps ids back to package names.
func (idx PackageIndex) Names(ids []PackageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}
