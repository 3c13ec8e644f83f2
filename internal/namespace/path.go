package namespace

import (
	"slices"
	"strings"
)

// ModulePath is a sequence of module names.
type ModulePath []string

func (p ModulePath) String() string {
	return strings.Join(p, "::")
}

func (p ModulePath) Clone() ModulePath {
	if p == nil {
		return nil
	}
	return slices.Clone(p)
}

// Join returns p followed by names without aliasing p.
func (p ModulePath) Join(names ...string) ModulePath {
	out := make(ModulePath, 0, len(p)+len(names))
	out = append(out, p...)
	return append(out, names...)
}

func (p ModulePath) Equal(other ModulePath) bool {
	return slices.Equal(p, other)
}

// HasPrefix reports whether p starts with prefix.
func (p ModulePath) HasPrefix(prefix ModulePath) bool {
	return len(p) >= len(prefix) && slices.Equal(p[:len(prefix)], prefix)
}

// ParsePath splits "a::b::c". An empty string yields an empty path.
func ParsePath(s string) ModulePath {
	if s == "" {
		return ModulePath{}
	}
	return strings.Split(s, "::")
}
