package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/BrambyRS/lap-opt/internal/build"
	"github.com/BrambyRS/lap-opt/internal/config"
	"github.com/BrambyRS/lap-opt/internal/daemon"
	apperrors "github.com/BrambyRS/lap-opt/internal/errors"
	"github.com/BrambyRS/lap-opt/internal/latex"
	"github.com/BrambyRS/lap-opt/internal/logfields"
	"github.com/BrambyRS/lap-opt/internal/metrics"
	"github.com/BrambyRS/lap-opt/internal/paths"
	"github.com/BrambyRS/lap-opt/internal/state"
	"github.com/BrambyRS/lap-opt/internal/version"
	"github.com/BrambyRS/lap-opt/internal/workspace"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"report.yaml"`
	Root    string `short:"r" help:"Project root (default: directory containing the executable)"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Passes int `short:"p" help:"Engine passes for this build (overrides config)"`
	} `cmd:"" default:"1" help:"Compile src/main.tex into build/"`

	Watch struct{} `cmd:"" help:"Rebuild automatically when source files change"`

	Daemon struct{} `cmd:"" help:"Run continuously: watch, schedule, status HTTP, metrics"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write an example configuration file"`

	History struct {
		Limit int `short:"n" help:"Number of builds to show" default:"20"`
		Prune int `help:"Keep only the newest N records and delete the rest"`
	} `cmd:"" help:"Show recent build history"`

	Doctor struct{} `cmd:"" help:"Check engine availability, source presence, and build directory"`

	Clean struct{} `cmd:"" help:"Remove build directory contents"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	adapter := apperrors.NewCLIErrorAdapter(CLI.Verbose, slog.Default())

	switch ctx.Command() {
	case "build":
		adapter.HandleError(runBuild())
	case "watch":
		adapter.HandleError(runWatch())
	case "daemon":
		adapter.HandleError(runDaemon())
	case "init":
		adapter.HandleError(runInit())
	case "history":
		adapter.HandleError(runHistory())
	case "doctor":
		adapter.HandleError(runDoctor())
	case "clean":
		adapter.HandleError(runClean())
	case "version":
		fmt.Printf("reportbuild %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
}

// resolveConfigPath looks for the configuration file first in the working
// directory, then next to the executable, so invoking the tool from anywhere
// in the tree behaves the same.
func resolveConfigPath() string {
	if filepath.IsAbs(CLI.Config) {
		return CLI.Config
	}
	if _, err := os.Stat(CLI.Config); err == nil {
		return CLI.Config
	}
	if dir, err := paths.ExecutableDir(); err == nil {
		candidate := filepath.Join(dir, CLI.Config)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return CLI.Config
}

func setup() (*config.Config, *paths.Layout, error) {
	cfg, err := config.LoadIfPresent(resolveConfigPath())
	if err != nil {
		return nil, nil, apperrors.WrapError(err, apperrors.CategoryConfig, "failed to load configuration")
	}

	root := CLI.Root
	if root == "" {
		root = cfg.Root
	}
	layout, err := paths.Resolve(root)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal,
			"failed to resolve project root")
	}
	return cfg, layout, nil
}

// historyPath returns the configured history database path, defaulting to
// <root>/.reportbuild/history.db.
func historyPath(cfg *config.Config, layout *paths.Layout) string {
	if cfg.Daemon.HistoryDB != "" {
		return cfg.Daemon.HistoryDB
	}
	return filepath.Join(layout.Root, ".reportbuild", "history.db")
}

func openHistory(cfg *config.Config, layout *paths.Layout) (*state.Store, error) {
	dbPath := historyPath(cfg, layout)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, apperrors.WrapError(err, apperrors.CategoryState, "failed to create history directory")
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.CategoryState, "failed to open build history")
	}
	return store, nil
}

func newService(cfg *config.Config, layout *paths.Layout) (*build.Service, *state.Store) {
	engine := latex.NewBinaryEngine(cfg.Engine.Command)
	svc := build.NewService(cfg, layout, engine)

	// History is best-effort for one-shot builds: a broken database should
	// never block compiling the report.
	store, err := openHistory(cfg, layout)
	if err != nil {
		slog.Warn("Build history unavailable", logfields.Error(err))
		return svc, nil
	}
	return svc.WithHistory(store), store
}

func runBuild() error {
	cfg, layout, err := setup()
	if err != nil {
		return err
	}
	if CLI.Build.Passes > 0 {
		cfg.Build.Passes = CLI.Build.Passes
	}

	svc, store := newService(cfg, layout)
	if store != nil {
		defer store.Close()
	}

	_, err = svc.Run(context.Background(), build.TriggerCLI)
	return err
}

func runWatch() error {
	cfg, layout, err := setup()
	if err != nil {
		return err
	}

	svc, store := newService(cfg, layout)
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runOnce := func(trigger string) {
		if _, err := svc.Run(context.Background(), trigger); err != nil {
			slog.Error("Build failed", logfields.Error(err))
		}
	}

	debouncer := daemon.NewDebouncer(
		cfg.Daemon.QuietWindow.Std(),
		cfg.Daemon.MaxDelay.Std(),
		func() { runOnce(build.TriggerWatch) },
	)

	srcDir := filepath.Join(layout.Root, paths.SourceDirName)
	watcher, err := daemon.NewSourceWatcher(srcDir, func(string) { debouncer.Request() })
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryRuntime, apperrors.SeverityFatal,
			"failed to watch source directory")
	}
	defer watcher.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		debouncer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()

	runOnce(build.TriggerCLI)
	slog.Info("Watching for changes", logfields.Path(srcDir))

	<-ctx.Done()
	// Let an in-flight debounced build finish before returning; the debouncer
	// only returns between trigger callbacks.
	wg.Wait()
	return nil
}

func runDaemon() error {
	cfg, layout, err := setup()
	if err != nil {
		return err
	}

	store, err := openHistory(cfg, layout)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	engine := latex.NewBinaryEngine(cfg.Engine.Command)
	svc := build.NewService(cfg, layout, engine).
		WithRecorder(recorder).
		WithHistory(store)

	d, err := daemon.New(cfg, svc, store, registry)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryDaemon, apperrors.SeverityFatal,
			"failed to create daemon")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return apperrors.Wrap(err, apperrors.CategoryDaemon, apperrors.SeverityFatal, "daemon failed")
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return apperrors.WrapError(err, apperrors.CategoryDaemon, "failed to stop daemon cleanly")
	}
	return nil
}

func runInit() error {
	if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
		return apperrors.WrapError(err, apperrors.CategoryConfig, "failed to write configuration")
	}
	fmt.Printf("Wrote %s\n", CLI.Config)
	return nil
}

func runHistory() error {
	cfg, layout, err := setup()
	if err != nil {
		return err
	}

	store, err := openHistory(cfg, layout)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if CLI.History.Prune > 0 {
		if err := store.Prune(ctx, CLI.History.Prune); err != nil {
			return apperrors.WrapError(err, apperrors.CategoryState, "failed to prune build history")
		}
		fmt.Printf("Pruned history to %d records\n", CLI.History.Prune)
	}

	records, err := store.Recent(ctx, CLI.History.Limit)
	if err != nil {
		return apperrors.WrapError(err, apperrors.CategoryState, "failed to read build history")
	}
	if len(records) == 0 {
		fmt.Println("No builds recorded yet.")
		return nil
	}

	fmt.Printf("%-20s %-8s %-9s %6s %6s %6s  %s\n",
		"STARTED", "OUTCOME", "TRIGGER", "EXIT", "PAGES", "TIME", "COMMIT")
	for _, rec := range records {
		commit := rec.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		if rec.Dirty {
			commit += "+"
		}
		fmt.Printf("%-20s %-8s %-9s %6d %6d %5.1fs  %s\n",
			rec.StartedAt.Format("2006-01-02 15:04:05"),
			rec.Outcome, rec.Trigger, rec.ExitCode, rec.Pages,
			rec.Duration.Seconds(), commit)
	}
	return nil
}

func runDoctor() error {
	cfg, layout, err := setup()
	if err != nil {
		return err
	}

	healthy := true

	enginePath, err := exec.LookPath(cfg.Engine.Command)
	if err != nil {
		fmt.Printf("engine:    %s NOT FOUND on PATH\n", cfg.Engine.Command)
		healthy = false
	} else {
		engineVersion := latex.DetectEngineVersion(context.Background(), cfg.Engine.Command)
		if engineVersion == "" {
			engineVersion = "unknown version"
		}
		fmt.Printf("engine:    %s (%s)\n", enginePath, engineVersion)
	}

	if layout.SourceExists() {
		fmt.Printf("source:    %s\n", layout.Source)
	} else {
		fmt.Printf("source:    %s MISSING\n", layout.Source)
		healthy = false
	}

	if err := workspace.NewManager(layout.BuildDir).Ensure(); err != nil {
		fmt.Printf("build dir: %s NOT WRITABLE (%v)\n", layout.BuildDir, err)
		healthy = false
	} else {
		fmt.Printf("build dir: %s\n", layout.BuildDir)
	}

	fmt.Printf("history:   %s\n", historyPath(cfg, layout))

	if !healthy {
		return apperrors.ValidationError("environment is not ready to build")
	}
	fmt.Println("ok")
	return nil
}

func runClean() error {
	_, layout, err := setup()
	if err != nil {
		return err
	}

	if err := workspace.NewManager(layout.BuildDir).Clean(); err != nil {
		return apperrors.WrapError(err, apperrors.CategoryFileSystem, "failed to clean build directory")
	}
	return nil
}
