package source

import (
	"path/filepath"
)

// FormatPath renders the file path for display.
// mode is one of "absolute", "relative", "basename" or "auto".
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := filepath.Abs(filepath.FromSlash(f.Path)); err == nil {
			return filepath.ToSlash(abs)
		}
		return f.Path

	case "relative":
		if baseDir == "" || !filepath.IsAbs(filepath.FromSlash(f.Path)) {
			return f.Path
		}
		if rel, err := filepath.Rel(baseDir, filepath.FromSlash(f.Path)); err == nil {
			return filepath.ToSlash(rel)
		}
		return f.Path

	case "basename":
		return filepath.Base(f.Path)

	case "auto":
		// короткие и относительные пути как есть, длинные абсолютные - basename
		if len(f.Path) < 40 || !filepath.IsAbs(filepath.FromSlash(f.Path)) {
			return f.Path
		}
		return filepath.Base(f.Path)

	default:
		return f.Path
	}
}
