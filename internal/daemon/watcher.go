package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/BrambyRS/lap-opt/internal/logfields"
)

// watchedExtensions lists source file types whose changes trigger a rebuild.
var watchedExtensions = map[string]bool{
	".tex": true,
	".bib": true,
	".sty": true,
	".cls": true,
	".md":  true,
	".png": true,
	".jpg": true,
	".pdf": true, // vector figures exported as PDF
	".eps": true,
}

// SourceWatcher monitors the source tree and reports relevant changes.
type SourceWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func(path string)
}

// NewSourceWatcher watches root and all its subdirectories.
func NewSourceWatcher(root string, onChange func(path string)) (*SourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	sw := &SourceWatcher{watcher: watcher, onChange: onChange}
	if err := sw.addRecursive(root); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	slog.Info("Watching source tree", logfields.Path(root))
	return sw, nil
}

func (sw *SourceWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := sw.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// Run processes filesystem events until ctx is canceled.
func (sw *SourceWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.handleEvent(event)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (sw *SourceWatcher) handleEvent(event fsnotify.Event) {
	// New directories need their own watches (editors create them for assets).
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := sw.addRecursive(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
		return
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	if !watchedExtensions[ext] {
		return
	}

	// Editors write via temp files; ignore common temp suffixes.
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".#") || strings.HasSuffix(base, "~") {
		return
	}

	slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	sw.onChange(event.Name)
}

// Close releases the underlying watcher.
func (sw *SourceWatcher) Close() error {
	return sw.watcher.Close()
}
