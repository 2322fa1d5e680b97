// Package paths resolves the project root and the fixed report layout under it.
//
// The build directory is always colocated with the running executable, never
// with the caller's working directory. Invoking the tool from anywhere in the
// tree (or outside it) must produce artifacts in the same place.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Fixed layout relative to the project root.
const (
	SourceDirName = "src"
	SourceName    = "main.tex"
	BuildDirName  = "build"
	NotesDirName  = "notes"
)

// ExecutableDir returns the absolute directory containing the running
// executable, with symlinks evaluated so that a symlinked install still
// resolves to the real location.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(resolved), nil
}

// Layout describes the resolved report project layout.
type Layout struct {
	Root     string // project root (executable directory unless overridden)
	Source   string // <root>/src/main.tex
	BuildDir string // <root>/build
	NotesDir string // <root>/src/notes (optional markdown chapters)
}

// Resolve computes the layout for the given root. An empty root resolves to
// the executable's own directory.
func Resolve(root string) (*Layout, error) {
	if root == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, err
		}
		root = dir
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	return &Layout{
		Root:     abs,
		Source:   filepath.Join(abs, SourceDirName, SourceName),
		BuildDir: filepath.Join(abs, BuildDirName),
		NotesDir: filepath.Join(abs, SourceDirName, NotesDirName),
	}, nil
}

// SourceExists reports whether the fixed source document is present.
func (l *Layout) SourceExists() bool {
	info, err := os.Stat(l.Source)
	return err == nil && !info.IsDir()
}
