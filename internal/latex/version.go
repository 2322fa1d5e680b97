package latex

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

// DetectEngineVersion attempts to detect the version of the engine binary on
// PATH. Returns the version string (e.g., "3.141592653-2.6-1.40.26") or empty
// string if detection fails. This is best-effort and will not error if the
// engine is unavailable.
func DetectEngineVersion(ctx context.Context, command string) string {
	enginePath, err := exec.LookPath(command)
	if err != nil {
		return ""
	}

	// #nosec G204 -- enginePath is from exec.LookPath, not user-controlled
	cmd := exec.CommandContext(ctx, enginePath, "--version")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	// Expected first-line formats:
	//   pdfTeX 3.141592653-2.6-1.40.26 (TeX Live 2024)
	//   XeTeX 3.141592653-2.6-0.999996 (TeX Live 2024)
	//   LuaHBTeX, Version 1.18.0 (TeX Live 2024)
	return parseEngineVersion(string(output))
}

var (
	versionRegex = regexp.MustCompile(`(\d+\.\d+[\w.\-]*)`)
)

// parseEngineVersion extracts the version token from engine --version output.
// Returns empty string if parsing fails.
func parseEngineVersion(output string) string {
	firstLine, _, _ := strings.Cut(output, "\n")

	matches := versionRegex.FindStringSubmatch(firstLine)
	if len(matches) >= 2 {
		return matches[1]
	}
	return strings.TrimSpace(firstLine)
}
