package namespace

import (
	"errors"
	"fmt"

	"quill/internal/ast"
	"quill/internal/source"
)

var ErrDuplicateItem = errors.New("duplicate item")

type ItemKind uint8

const (
	ItemStruct ItemKind = iota
	ItemEnum
	ItemFn
)

func (k ItemKind) String() string {
	switch k {
	case ItemStruct:
		return "struct"
	case ItemEnum:
		return "enum"
	case ItemFn:
		return "function"
	default:
		return "item"
	}
}

// Item is a named declaration living in a module.
// Decl holds the checker's typed declaration once it exists.
type Item struct {
	Kind ItemKind
	Name string
	Vis  ast.Visibility
	Span source.Span
	// Path is the absolute path of the defining module, package name first.
	Path ModulePath
	Decl any
}

// IsTypeItem reports whether the item names a type.
func (it *Item) IsTypeItem() bool {
	return it.Kind == ItemStruct || it.Kind == ItemEnum
}

// Items is an insertion-ordered set of declarations keyed by name.
// Types and functions share one name space.
type Items struct {
	byName map[string]*Item
	order  []string
}

func NewItems() *Items {
	return &Items{byName: make(map[string]*Item)}
}

// Insert adds item. On a name clash the existing item is returned with ErrDuplicateItem.
func (it *Items) Insert(item *Item) (*Item, error) {
	if prev, ok := it.byName[item.Name]; ok {
		return prev, fmt.Errorf("%w: %s %q", ErrDuplicateItem, prev.Kind, item.Name)
	}
	it.byName[item.Name] = item
	it.order = append(it.order, item.Name)
	return item, nil
}

func (it *Items) Lookup(name string) (*Item, bool) {
	item, ok := it.byName[name]
	return item, ok
}

func (it *Items) Len() int { return len(it.order) }

// All returns items in insertion order.
func (it *Items) All() []*Item {
	out := make([]*Item, 0, len(it.order))
	for _, name := range it.order {
		out = append(out, it.byName[name])
	}
	return out
}

// Names returns item names in insertion order.
func (it *Items) Names() []string {
	return append([]string(nil), it.order...)
}

// Clone copies every item; typed declarations are shared.
func (it *Items) Clone() *Items {
	out := &Items{
		byName: make(map[string]*Item, len(it.byName)),
		order:  append([]string(nil), it.order...),
	}
	for name, item := range it.byName {
		cp := *item
		cp.Path = item.Path.Clone()
		out.byName[name] = &cp
	}
	return out
}
