package latex

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// LogSummary holds figures extracted from an engine log file. All fields are
// best-effort; an unparseable log yields a zero summary, never an error that
// would fail an otherwise successful build.
type LogSummary struct {
	Pages       int
	Warnings    int
	Errors      int
	NeedsRerun  bool // engine asked for another pass (cross-references)
	OutputFile  string
	OutputBytes int64
}

var outputWrittenRegex = regexp.MustCompile(`Output written on (.+?) \((\d+) pages?, (\d+) bytes\)`)

// ScanLog reads an engine .log file and extracts a summary.
func ScanLog(logPath string) (*LogSummary, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	summary := &LogSummary{}
	scanner := bufio.NewScanner(f)
	// TeX logs can contain very long lines (file lists, overfull boxes).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "!"):
			summary.Errors++
		case strings.Contains(line, "Warning"):
			summary.Warnings++
		}

		if strings.Contains(line, "Rerun to get") || strings.Contains(line, "rerun LaTeX") {
			summary.NeedsRerun = true
		}

		if m := outputWrittenRegex.FindStringSubmatch(line); m != nil {
			summary.OutputFile = m[1]
			if pages, err := strconv.Atoi(m[2]); err == nil {
				summary.Pages = pages
			}
			if bytes, err := strconv.ParseInt(m[3], 10, 64); err == nil {
				summary.OutputBytes = bytes
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return summary, nil
}
