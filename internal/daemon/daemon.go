// Package daemon keeps the report continuously built: it watches the source
// tree, debounces change bursts, optionally rebuilds on a schedule, serves
// status and metrics over HTTP, and publishes build events to NATS.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/BrambyRS/lap-opt/internal/build"
	"github.com/BrambyRS/lap-opt/internal/config"
	"github.com/BrambyRS/lap-opt/internal/logfields"
	"github.com/BrambyRS/lap-opt/internal/paths"
	"github.com/BrambyRS/lap-opt/internal/state"
)

// Daemon wires the continuous-build components together.
type Daemon struct {
	cfg       *config.Config
	svc       *build.Service
	store     *state.Store
	registry  *prom.Registry
	watcher   *SourceWatcher
	debouncer *Debouncer
	scheduler *Scheduler
	publisher *Publisher
	server    *http.Server

	buildMu sync.Mutex
	wg      sync.WaitGroup
}

// New assembles a daemon around an existing build service. registry may carry
// an already-attached PrometheusRecorder; store may be nil.
func New(cfg *config.Config, svc *build.Service, store *state.Store, registry *prom.Registry) (*Daemon, error) {
	d := &Daemon{
		cfg:      cfg,
		svc:      svc,
		store:    store,
		registry: registry,
	}

	d.debouncer = NewDebouncer(
		cfg.Daemon.QuietWindow.Std(),
		cfg.Daemon.MaxDelay.Std(),
		func() { d.runBuild(build.TriggerWatch) },
	)

	watcher, err := NewSourceWatcher(filepath.Join(svc.Layout().Root, paths.SourceDirName), func(string) { d.debouncer.Request() })
	if err != nil {
		return nil, fmt.Errorf("failed to create source watcher: %w", err)
	}
	d.watcher = watcher

	if cfg.Daemon.ScheduleInterval.Std() > 0 {
		scheduler, err := NewScheduler()
		if err != nil {
			_ = watcher.Close()
			return nil, err
		}
		d.scheduler = scheduler
	}

	if cfg.Daemon.NATS.Enabled {
		publisher, err := NewPublisher(cfg.Daemon.NATS.URL, cfg.Daemon.NATS.Subject)
		if err != nil {
			_ = watcher.Close()
			return nil, err
		}
		d.publisher = publisher
	}

	status := NewStatusServer(store, registry)
	d.server = &http.Server{
		Addr:              cfg.Daemon.Listen,
		Handler:           status.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return d, nil
}

// Start runs the daemon until ctx is canceled. An initial build runs
// immediately so the report is never stale on startup.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("Starting daemon",
		slog.String("listen", d.cfg.Daemon.Listen),
		logfields.Path(d.svc.Layout().Root))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.debouncer.Run(ctx)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.watcher.Run(ctx)
	}()

	if d.scheduler != nil {
		if _, err := d.scheduler.SchedulePeriodicBuild(
			d.cfg.Daemon.ScheduleInterval.Std(),
			func() { d.runBuild(build.TriggerSchedule) },
		); err != nil {
			return err
		}
		d.scheduler.Start()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	d.runBuild(build.TriggerCLI)

	select {
	case err := <-errChan:
		return fmt.Errorf("status server failed: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down gracefully.
func (d *Daemon) Stop(ctx context.Context) error {
	slog.Info("Stopping daemon")

	var firstErr error
	if err := d.server.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := d.watcher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if d.publisher != nil {
		d.publisher.Close()
	}

	d.wg.Wait()
	return firstErr
}

// runBuild executes one build, serialized so overlapping triggers queue up
// behind the running build instead of racing over the output directory.
func (d *Daemon) runBuild(trigger string) {
	d.buildMu.Lock()
	defer d.buildMu.Unlock()

	result, err := d.svc.Run(context.Background(), trigger)
	if err != nil {
		slog.Error("Build failed", logfields.Error(err))
	}
	if result == nil {
		return
	}

	if d.publisher != nil {
		if err := d.publisher.PublishBuild(result, trigger); err != nil {
			slog.Warn("Failed to publish build event", logfields.BuildID(result.ID), logfields.Error(err))
		}
	}
}
