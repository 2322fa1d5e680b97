package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExecutableDir(t *testing.T) {
	dir, err := ExecutableDir()
	if err != nil {
		t.Fatalf("ExecutableDir() failed: %v", err)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("Expected absolute path, got: %s", dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Executable directory does not exist: %s", dir)
	}
}

func TestResolveExplicitRoot(t *testing.T) {
	root := t.TempDir()
	layout, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if layout.Root != root {
		t.Errorf("Expected root %s, got: %s", root, layout.Root)
	}
	if layout.Source != filepath.Join(root, "src", "main.tex") {
		t.Errorf("Unexpected source path: %s", layout.Source)
	}
	if layout.BuildDir != filepath.Join(root, "build") {
		t.Errorf("Unexpected build dir: %s", layout.BuildDir)
	}
	if layout.NotesDir != filepath.Join(root, "src", "notes") {
		t.Errorf("Unexpected notes dir: %s", layout.NotesDir)
	}
}

// The layout must not depend on the caller's working directory.
func TestResolveIndependentOfWorkingDirectory(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	t.Chdir(other)

	layout, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if layout.BuildDir != filepath.Join(root, "build") {
		t.Errorf("Build dir moved with working directory: %s", layout.BuildDir)
	}
}

func TestResolveDefaultsToExecutableDir(t *testing.T) {
	layout, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") failed: %v", err)
	}

	exeDir, err := ExecutableDir()
	if err != nil {
		t.Fatalf("ExecutableDir() failed: %v", err)
	}
	if layout.Root != exeDir {
		t.Errorf("Expected root %s, got: %s", exeDir, layout.Root)
	}
}

func TestSourceExists(t *testing.T) {
	root := t.TempDir()
	layout, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if layout.SourceExists() {
		t.Error("SourceExists() true before source was created")
	}

	if err := os.MkdirAll(filepath.Dir(layout.Source), 0o750); err != nil {
		t.Fatalf("Failed to create src dir: %v", err)
	}
	if err := os.WriteFile(layout.Source, []byte(`\documentclass{article}`), 0o600); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	if !layout.SourceExists() {
		t.Error("SourceExists() false after source was created")
	}
}
