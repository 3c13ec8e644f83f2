package project

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"quill/internal/source"
)

// DependencyMeta is one edge of the package graph.
type DependencyMeta struct {
	Name string
	Dir  string
	Span source.Span // место объявления в quill.toml
}

type FileMeta struct {
	Path string
	Hash Digest
}

// PackageMeta describes a loaded package for graph building and caching.
type PackageMeta struct {
	Name        string
	Dir         string
	Span        source.Span
	Deps        []DependencyMeta
	Files       []FileMeta
	ContentHash Digest // хеш манифеста и файлов объявлений
	Hash        Digest // ContentHash вместе с хешами зависимостей
}

// NewPackageMeta fills file hashes and ContentHash from files already loaded into fs.
func NewPackageMeta(name, dir string, span source.Span, fs *source.FileSet, files []source.FileID) PackageMeta {
	meta := PackageMeta{Name: name, Dir: dir, Span: span}
	hashes := make([]Digest, 0, len(files)+1)
	if f := fs.Get(span.File); f != nil && !span.IsZero() {
		hashes = append(hashes, f.Hash)
	}
	for _, id := range files {
		f := fs.Get(id)
		if f == nil {
			continue
		}
		meta.Files = append(meta.Files, FileMeta{Path: f.Path, Hash: f.Hash})
		hashes = append(hashes, f.Hash)
	}
	var empty Digest
	meta.ContentHash = Combine(empty, hashes...)
	meta.Hash = meta.ContentHash
	return meta
}

// NormalizeIdent trims and NFC-normalises an identifier so that visually equal names intern equally.
func NormalizeIdent(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// IsValidIdent accepts a letter or underscore followed by letters, digits and underscores.
func IsValidIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsValidPackageIdent is IsValidIdent restricted to ASCII, since package names become paths.
func IsValidPackageIdent(name string) bool {
	for _, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return IsValidIdent(name)
}
