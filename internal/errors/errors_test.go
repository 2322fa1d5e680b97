package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildErrorFormatting(t *testing.T) {
	err := New(CategoryFileSystem, SeverityError, "cannot create build directory")
	assert.Equal(t, "filesystem (error): cannot create build directory", err.Error())

	wrapped := Wrap(fmt.Errorf("permission denied"), CategoryFileSystem, SeverityError, "cannot create build directory")
	assert.Equal(t, "filesystem (error): cannot create build directory: permission denied", wrapped.Error())
	assert.EqualError(t, wrapped.Unwrap(), "permission denied")
}

func TestBuildErrorContext(t *testing.T) {
	err := New(CategoryEngine, SeverityFatal, "pdflatex not found").
		WithContext("engine", "pdflatex")
	require.NotNil(t, err.Context)
	assert.Equal(t, "pdflatex", err.Context["engine"])
}

func TestCategoryHelpers(t *testing.T) {
	err := WrapError(fmt.Errorf("yaml: line 3"), CategoryConfig, "bad yaml")
	assert.True(t, IsCategory(err, CategoryConfig))
	assert.False(t, IsCategory(err, CategoryEngine))
	assert.Equal(t, CategoryConfig, GetCategory(err))

	// Non-BuildError values fall back to internal.
	assert.Equal(t, CategoryInternal, GetCategory(fmt.Errorf("plain")))
}

type fakeExitErr struct{ code int }

func (f fakeExitErr) Error() string { return fmt.Sprintf("engine exited %d", f.code) }
func (f fakeExitErr) ExitCode() int { return f.code }

func TestExitCodeMapping(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, adapter.ExitCodeFor(nil))
	assert.Equal(t, 2, adapter.ExitCodeFor(ValidationError("bad flag")))
	assert.Equal(t, 7, adapter.ExitCodeFor(New(CategoryConfig, SeverityError, "bad yaml")))
	assert.Equal(t, 9, adapter.ExitCodeFor(New(CategoryEngine, SeverityFatal, "missing")))
	assert.Equal(t, 11, adapter.ExitCodeFor(New(CategoryFileSystem, SeverityError, "mkdir failed")))
	assert.Equal(t, 12, adapter.ExitCodeFor(New(CategoryDaemon, SeverityError, "daemon broke")))
	assert.Equal(t, 1, adapter.ExitCodeFor(fmt.Errorf("plain")))
}

// Engine exit codes pass through unchanged, including when wrapped.
func TestExitCodePropagation(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 1, adapter.ExitCodeFor(fakeExitErr{code: 1}))
	assert.Equal(t, 43, adapter.ExitCodeFor(fakeExitErr{code: 43}))

	wrapped := Wrap(fakeExitErr{code: 2}, CategoryCompile, SeverityError, "compile failed")
	assert.Equal(t, 2, adapter.ExitCodeFor(wrapped))
}

func TestFormatError(t *testing.T) {
	cfgErr := New(CategoryConfig, SeverityError, "bad yaml")

	adapter := NewCLIErrorAdapter(false, nil)
	assert.Equal(t, "", adapter.FormatError(nil))
	assert.Equal(t, "bad yaml", adapter.FormatError(cfgErr))
	assert.Equal(t, "engine: missing", adapter.FormatError(New(CategoryEngine, SeverityFatal, "missing")))

	verbose := NewCLIErrorAdapter(true, nil)
	assert.Equal(t, "config (error): bad yaml", verbose.FormatError(cfgErr))
}
