// Package latex wraps the external typesetting engine (pdflatex and friends).
//
// The engine is treated as an opaque collaborator: it receives an output
// directory and a source document, writes whatever artifacts it wants into
// that directory, and reports success or failure through its exit status.
package latex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/BrambyRS/lap-opt/internal/logfields"
)

// Job describes a single engine invocation.
type Job struct {
	Source    string   // absolute path to the main document
	OutputDir string   // absolute path; all artifacts land here
	ExtraArgs []string // appended before the source path
}

// PassResult captures the outcome of one engine pass.
type PassResult struct {
	ExitCode int
	Duration time.Duration
	Output   string // combined stdout+stderr
}

// Engine abstracts how a compile pass is performed. This allows swapping the
// external binary (BinaryEngine) with alternative strategies (no-op for
// tests, containerized engine) without changing build orchestration.
type Engine interface {
	Compile(ctx context.Context, job Job) (*PassResult, error)
	Name() string
}

// BinaryEngine invokes a TeX engine binary present on PATH.
type BinaryEngine struct {
	Command string // e.g. "pdflatex"
}

// NewBinaryEngine creates an engine wrapper for the given command.
func NewBinaryEngine(command string) *BinaryEngine {
	if command == "" {
		command = "pdflatex"
	}
	return &BinaryEngine{Command: command}
}

// Name returns the engine command name.
func (b *BinaryEngine) Name() string { return b.Command }

// Compile runs one engine pass. The engine not being installed is reported
// before anything is executed; a non-zero engine exit surfaces as *RunError
// carrying the exact status.
func (b *BinaryEngine) Compile(ctx context.Context, job Job) (*PassResult, error) {
	enginePath, err := exec.LookPath(b.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineNotFound, err)
	}

	args := []string{
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-output-directory", job.OutputDir,
	}
	args = append(args, job.ExtraArgs...)
	args = append(args, job.Source)

	// #nosec G204 -- enginePath is from exec.LookPath, not user-controlled
	cmd := exec.CommandContext(ctx, enginePath, args...)
	// Run from the source directory so relative \input and \includegraphics
	// paths resolve the same way they would for a manual invocation.
	cmd.Dir = filepath.Dir(job.Source)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Debug("Invoking typesetting engine",
		logfields.Engine(b.Command),
		logfields.Source(job.Source),
		logfields.Path(job.OutputDir))

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := &PassResult{
		Duration: elapsed,
		Output:   output.String(),
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("engine interrupted: %w", ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &RunError{
				Command: b.Command,
				Code:    exitErr.ExitCode(),
				Output:  outputTail(output.String(), 20),
			}
		}
		return result, fmt.Errorf("%w: %w", ErrEngineNotFound, runErr)
	}

	return result, nil
}

// NoopEngine performs no compilation; useful in tests or when only directory
// preparation is desired.
type NoopEngine struct{}

func (NoopEngine) Compile(_ context.Context, _ Job) (*PassResult, error) {
	return &PassResult{}, nil
}

func (NoopEngine) Name() string { return "noop" }

// outputTail returns the last n non-empty lines of engine output. TeX engines
// bury the actual error at the bottom of pages of box diagnostics.
func outputTail(output string, n int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		kept = append([]string{lines[i]}, kept...)
	}
	return strings.Join(kept, "\n")
}
