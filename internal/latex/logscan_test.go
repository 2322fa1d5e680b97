package latex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `This is pdfTeX, Version 3.141592653-2.6-1.40.26 (TeX Live 2024)
LaTeX2e <2023-11-01>
LaTeX Warning: Citation 'foo' on page 1 undefined on input line 12.
Overfull \hbox (1.23pt too wide) in paragraph at lines 40--41
LaTeX Warning: There were undefined references.
LaTeX Warning: Label(s) may have changed. Rerun to get cross-references right.
Output written on main.pdf (12 pages, 483920 bytes).
`

const errorLog = `This is pdfTeX, Version 3.141592653-2.6-1.40.26 (TeX Live 2024)
! Undefined control sequence.
l.5 \bogus
No pages of output.
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestScanLogSuccess(t *testing.T) {
	summary, err := ScanLog(writeLog(t, sampleLog))
	require.NoError(t, err)

	assert.Equal(t, 12, summary.Pages)
	assert.Equal(t, int64(483920), summary.OutputBytes)
	assert.Equal(t, "main.pdf", summary.OutputFile)
	assert.Equal(t, 3, summary.Warnings)
	assert.Equal(t, 0, summary.Errors)
	assert.True(t, summary.NeedsRerun)
}

func TestScanLogWithErrors(t *testing.T) {
	summary, err := ScanLog(writeLog(t, errorLog))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.Pages)
	assert.False(t, summary.NeedsRerun)
}

func TestScanLogMissingFile(t *testing.T) {
	_, err := ScanLog(filepath.Join(t.TempDir(), "absent.log"))
	require.Error(t, err)
}
