package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrPackageSectionMissing indicates that [package] is missing in a manifest.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrPackageNameMissing indicates that [package].name is missing or empty.
	ErrPackageNameMissing = errors.New("missing [package].name")
	// ErrInvalidPackageName indicates that [package].name is not an identifier.
	ErrInvalidPackageName = errors.New("invalid package name")
	// ErrUnknownKey indicates a key the manifest format does not define.
	ErrUnknownKey = errors.New("unknown manifest key")
	// ErrDependencyNotFound indicates a dependency directory without quill.toml.
	ErrDependencyNotFound = errors.New("dependency not found")
)

// DefaultSources is used when [package].sources is absent.
var DefaultSources = []string{"src"}

// Manifest is a parsed quill.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Package      PackageConfig     `toml:"package"`
	Dependencies map[string]string `toml:"dependencies"`
	Check        CheckConfig       `toml:"check"`
}

type PackageConfig struct {
	Name    string   `toml:"name"`
	Sources []string `toml:"sources"`
}

// CheckConfig holds per-package checker settings; zero values mean "use the CLI defaults".
type CheckConfig struct {
	MaxDiagnostics   int  `toml:"max-diagnostics"`
	WarningsAsErrors bool `toml:"warnings-as-errors"`
}

// Dependency is a resolved [dependencies] entry.
type Dependency struct {
	Name     string
	Dir      string
	Manifest string
}

// Name returns the package name.
func (m *Manifest) Name() string { return m.Config.Package.Name }

// LoadManifest parses the quill.toml at path.
func LoadManifest(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnknownKey, undecoded[0].String())
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	cfg.Package.Name = NormalizeIdent(cfg.Package.Name)
	if !meta.IsDefined("package", "name") || cfg.Package.Name == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageNameMissing)
	}
	if !IsValidPackageIdent(cfg.Package.Name) {
		return nil, fmt.Errorf("%s: %w %q", path, ErrInvalidPackageName, cfg.Package.Name)
	}
	if !meta.IsDefined("package", "sources") {
		cfg.Package.Sources = slices.Clone(DefaultSources)
	}
	for name := range cfg.Dependencies {
		if !IsValidPackageIdent(name) {
			return nil, fmt.Errorf("%s: invalid dependency name %q", path, name)
		}
		if strings.TrimSpace(cfg.Dependencies[name]) == "" {
			return nil, fmt.Errorf("%s: dependency %q has an empty path", path, name)
		}
	}
	if cfg.Check.MaxDiagnostics < 0 {
		return nil, fmt.Errorf("%s: [check].max-diagnostics must not be negative", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	return &Manifest{
		Path:   abs,
		Root:   filepath.Dir(abs),
		Config: cfg,
	}, nil
}

// LoadManifestDir loads the manifest of the package rooted at dir.
func LoadManifestDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestName))
}

// SourceFiles lists the declaration files named by [package].sources.
// Directories are walked recursively; the result is sorted and free of duplicates.
func (m *Manifest) SourceFiles() ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, entry := range m.Config.Package.Sources {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		p := filepath.Join(m.Root, filepath.FromSlash(entry))
		if filepath.IsAbs(entry) {
			p = filepath.Clean(entry)
		}
		if !pathWithin(m.Root, p) && p != m.Root {
			return nil, fmt.Errorf("%s: source %q escapes the package root", m.Path, entry)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%s: source %q: %w", m.Path, entry, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsDeclFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: source %q: %w", m.Path, entry, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// IsDeclFile reports whether path has a declaration file extension.
func IsDeclFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DependencyNames returns the declared dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Config.Dependencies))
	for name := range m.Config.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveDependency locates the package directory of a declared dependency.
func (m *Manifest) ResolveDependency(name string) (Dependency, error) {
	raw, ok := m.Config.Dependencies[name]
	if !ok {
		return Dependency{}, fmt.Errorf("%s: %w: %q is not declared", m.Path, ErrDependencyNotFound, name)
	}
	dir := filepath.FromSlash(strings.TrimSpace(raw))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.Root, dir)
	}
	dir = filepath.Clean(dir)
	manifest := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(manifest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Dependency{}, fmt.Errorf("%w: %q has no %s in %s", ErrDependencyNotFound, name, ManifestName, dir)
		}
		return Dependency{}, fmt.Errorf("dependency %q: %w", name, err)
	}
	return Dependency{Name: name, Dir: dir, Manifest: manifest}, nil
}
