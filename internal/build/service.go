// Package build orchestrates a report build: prepare the output directory,
// convert Markdown notes, stamp repository metadata, run the typesetting
// engine, and record the outcome.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BrambyRS/lap-opt/internal/config"
	apperrors "github.com/BrambyRS/lap-opt/internal/errors"
	"github.com/BrambyRS/lap-opt/internal/gitinfo"
	"github.com/BrambyRS/lap-opt/internal/latex"
	"github.com/BrambyRS/lap-opt/internal/logfields"
	"github.com/BrambyRS/lap-opt/internal/metrics"
	"github.com/BrambyRS/lap-opt/internal/notes"
	"github.com/BrambyRS/lap-opt/internal/paths"
	"github.com/BrambyRS/lap-opt/internal/state"
	"github.com/BrambyRS/lap-opt/internal/workspace"
)

// Trigger labels for build origins.
const (
	TriggerCLI      = "cli"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
)

// Result summarizes one build attempt.
type Result struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   string // metrics.OutcomeSuccess or metrics.OutcomeFailed
	ExitCode  int
	Passes    int
	Pages     int
	Warnings  int
	Artifact  string
	Commit    string
	Dirty     bool
}

// Service runs builds for a resolved report layout. Run is safe for
// concurrent use: overlapping triggers queue behind the running build instead
// of racing over the output directory.
type Service struct {
	cfg      *config.Config
	layout   *paths.Layout
	engine   latex.Engine
	recorder metrics.Recorder
	history  *state.Store

	runMu             sync.Mutex
	engineVersion     string
	engineVersionOnce bool
}

// NewService creates a build service. The recorder defaults to a no-op and
// history to disabled; use the With helpers to attach them.
func NewService(cfg *config.Config, layout *paths.Layout, engine latex.Engine) *Service {
	return &Service{
		cfg:      cfg,
		layout:   layout,
		engine:   engine,
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithHistory attaches a build history store (fluent helper).
func (s *Service) WithHistory(store *state.Store) *Service {
	s.history = store
	return s
}

// Layout returns the layout this service builds.
func (s *Service) Layout() *paths.Layout { return s.layout }

// Run executes one build. The returned Result is non-nil whenever a build was
// attempted, even on failure; the error classifies what went wrong and, for
// compile failures, carries the engine's exit status.
func (s *Service) Run(ctx context.Context, trigger string) (*Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	result := &Result{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Outcome:   metrics.OutcomeFailed,
	}
	s.recorder.IncTrigger(trigger)

	slog.Info("Starting report build",
		logfields.BuildID(result.ID),
		logfields.Engine(s.engine.Name()),
		logfields.Source(s.layout.Source),
		logfields.Path(s.layout.BuildDir))

	ws := workspace.NewManager(s.layout.BuildDir)
	if err := ws.Ensure(); err != nil {
		// The engine is never invoked when the output directory cannot exist.
		return nil, apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal,
			"cannot create build directory").WithContext("path", s.layout.BuildDir)
	}

	if s.cfg.Build.NotesEnabled() {
		if err := s.convertNotes(); err != nil {
			return nil, err
		}
	}

	if s.cfg.Build.StampEnabled() {
		s.stampBuildInfo(result)
	}

	err := s.compile(ctx, result)
	s.finish(ctx, result, trigger)

	if err != nil {
		return result, err
	}
	return result, nil
}

// convertNotes turns src/notes/*.md into TeX includes under the build dir.
func (s *Service) convertNotes() error {
	converted, err := notes.ConvertDir(s.layout.NotesDir, filepath.Join(s.layout.BuildDir, "notes"))
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryNotes, apperrors.SeverityError,
			"failed to convert markdown notes")
	}
	if len(converted) > 0 {
		slog.Info("Converted markdown notes", slog.Int("chapters", len(converted)))
	}
	return nil
}

// stampBuildInfo writes buildinfo.tex into the build directory so the report
// can render the revision it was built from. Best-effort: a tree that is not
// a git checkout builds without a stamp.
func (s *Service) stampBuildInfo(result *Result) {
	info, err := gitinfo.Describe(s.layout.Root)
	if err != nil {
		slog.Debug("No repository metadata for build stamp", logfields.Error(err))
		return
	}
	result.Commit = info.Commit
	result.Dirty = info.Dirty

	dirtyMark := ""
	if info.Dirty {
		dirtyMark = "+"
	}
	var b strings.Builder
	b.WriteString("% Generated by reportbuild. Do not edit.\n")
	fmt.Fprintf(&b, "\\newcommand{\\BuildCommit}{%s%s}\n", info.ShortCommit, dirtyMark)
	fmt.Fprintf(&b, "\\newcommand{\\BuildBranch}{%s}\n", texEscape(info.Branch))
	fmt.Fprintf(&b, "\\newcommand{\\BuildDate}{%s}\n", time.Now().Format("2006-01-02 15:04"))

	stampPath := filepath.Join(s.layout.BuildDir, "buildinfo.tex")
	if err := os.WriteFile(stampPath, []byte(b.String()), 0o600); err != nil {
		slog.Warn("Failed to write build stamp", logfields.Path(stampPath), logfields.Error(err))
		return
	}
	slog.Debug("Stamped build info", logfields.Commit(info.ShortCommit))
}

// compile runs the configured number of engine passes.
func (s *Service) compile(ctx context.Context, result *Result) error {
	if s.cfg.Engine.Timeout.Std() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Engine.Timeout.Std())
		defer cancel()
	}

	job := latex.Job{
		Source:    s.layout.Source,
		OutputDir: s.layout.BuildDir,
		ExtraArgs: s.cfg.Engine.ExtraArgs,
	}

	for pass := 1; pass <= s.cfg.Build.Passes; pass++ {
		passResult, err := s.engine.Compile(ctx, job)
		if passResult != nil {
			s.recorder.ObservePassDuration(passResult.Duration)
		}
		result.Passes = pass

		if err != nil {
			if errors.Is(err, latex.ErrEngineNotFound) {
				return apperrors.Wrap(err, apperrors.CategoryEngine, apperrors.SeverityFatal,
					fmt.Sprintf("typesetting engine %q is not installed", s.engine.Name()))
			}
			var runErr *latex.RunError
			if errors.As(err, &runErr) {
				result.ExitCode = runErr.ExitCode()
			}
			return apperrors.Wrap(err, apperrors.CategoryCompile, apperrors.SeverityError,
				fmt.Sprintf("compilation failed on pass %d", pass)).WithContext("pass", pass)
		}

		slog.Debug("Engine pass completed", logfields.Pass(pass))
	}

	result.Outcome = metrics.OutcomeSuccess
	s.scanLog(result)
	result.Artifact = s.artifactPath()
	return nil
}

// scanLog extracts pages/warnings from the engine log; never fails the build.
func (s *Service) scanLog(result *Result) {
	logPath := filepath.Join(s.layout.BuildDir, s.jobName()+".log")
	summary, err := latex.ScanLog(logPath)
	if err != nil {
		slog.Debug("No engine log to scan", logfields.Path(logPath), logfields.Error(err))
		return
	}
	result.Pages = summary.Pages
	result.Warnings = summary.Warnings
	if summary.NeedsRerun && s.cfg.Build.Passes == 1 {
		slog.Warn("Engine suggests another pass for cross-references; consider build.passes: 2")
	}
}

// finish records metrics and history for a completed attempt.
func (s *Service) finish(ctx context.Context, result *Result, trigger string) {
	result.Duration = time.Since(result.StartedAt)
	s.recorder.ObserveBuildDuration(result.Duration)
	s.recorder.IncBuildOutcome(result.Outcome)
	s.recorder.SetLastBuildTimestamp(result.StartedAt)
	if result.Outcome == metrics.OutcomeSuccess {
		s.recorder.SetLastBuildPages(result.Pages)
	}

	if s.history != nil {
		rec := &state.BuildRecord{
			ID:            result.ID,
			StartedAt:     result.StartedAt,
			Duration:      result.Duration,
			Outcome:       result.Outcome,
			ExitCode:      result.ExitCode,
			Engine:        s.engine.Name(),
			EngineVersion: s.detectEngineVersion(ctx),
			Commit:        result.Commit,
			Dirty:         result.Dirty,
			Pages:         result.Pages,
			Warnings:      result.Warnings,
			Artifact:      result.Artifact,
			Trigger:       trigger,
		}
		if err := s.history.Record(ctx, rec); err != nil {
			slog.Warn("Failed to record build history", logfields.BuildID(result.ID), logfields.Error(err))
		}
	}

	slog.Info("Report build finished",
		logfields.BuildID(result.ID),
		logfields.Outcome(result.Outcome),
		logfields.ExitCode(result.ExitCode),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
}

// detectEngineVersion caches the engine version for history records.
func (s *Service) detectEngineVersion(ctx context.Context) string {
	if !s.engineVersionOnce {
		s.engineVersionOnce = true
		s.engineVersion = latex.DetectEngineVersion(ctx, s.engine.Name())
	}
	return s.engineVersion
}

// jobName is the engine's jobname: source file name without extension.
func (s *Service) jobName() string {
	base := filepath.Base(s.layout.Source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Service) artifactPath() string {
	return filepath.Join(s.layout.BuildDir, s.jobName()+".pdf")
}

// texEscape protects branch names and similar free text used in TeX macros.
func texEscape(s string) string {
	replacer := strings.NewReplacer("_", `\_`, "#", `\#`, "%", `\%`, "&", `\&`)
	return replacer.Replace(s)
}
