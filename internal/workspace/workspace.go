package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BrambyRS/lap-opt/internal/logfields"
)

// Manager handles the build output directory. The directory is persistent:
// Ensure is idempotent and Clean empties it without removing the directory
// itself, so the engine's auxiliary files can be regenerated in place.
type Manager struct {
	buildDir string
}

// NewManager creates a manager for the given build directory.
func NewManager(buildDir string) *Manager {
	return &Manager{buildDir: buildDir}
}

// Ensure creates the build directory and any missing parents. Succeeds
// silently if it already exists.
func (m *Manager) Ensure() error {
	if err := os.MkdirAll(m.buildDir, 0o750); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}
	slog.Debug("Build directory ready", logfields.Path(m.buildDir))
	return nil
}

// Path returns the build directory path.
func (m *Manager) Path() string {
	return m.buildDir
}

// Clean removes the contents of the build directory but keeps the directory.
// A missing directory is not an error.
func (m *Manager) Clean() error {
	entries, err := os.ReadDir(m.buildDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read build directory: %w", err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.buildDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}

	slog.Info("Cleaned build directory", logfields.Path(m.buildDir))
	return nil
}
