package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# reportbuild configuration.
# Every setting is optional; without this file the tool compiles
# src/main.tex into build/ next to the executable using pdflatex.

# root: /path/to/report/project

engine:
  command: pdflatex
  # extra_args: ["-shell-escape"]
  # timeout: 2m

build:
  # Two passes resolve cross-references and the table of contents.
  passes: 1
  # notes: true   # convert src/notes/*.md chapters to TeX includes
  # stamp: true   # write build/buildinfo.tex with git metadata

daemon:
  listen: ":8321"
  quiet_window: 500ms
  max_delay: 5s
  # schedule_interval: 1h
  # history_db: /var/lib/reportbuild/history.db
  nats:
    enabled: false
    # url: nats://localhost:4222
    # subject: reportbuild.builds
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
