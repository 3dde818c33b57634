package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const StarterTemplate = `version: 1
concurrency: 2
fail_fast: false
defaults:
  timeout: 60s
checks:
  - name: go-toolchain
    run: [go, version]
    requires: [go]
    expect:
      stdout_contains: ["go version"]
  - name: git-repository
    run: [git, rev-parse, --is-inside-work-tree]
    requires: [git]
    optional: true
    expect:
      stdout_contains: ["true"]
report:
  jsonl: runner-logs/cmdverify.jsonl
  log_dir: runner-logs/commands
`

// WriteStarter writes StarterTemplate to the default manifest location under
// repoRoot. An existing file is only replaced when force is set.
func WriteStarter(repoRoot string, force bool) (string, error) {
	configPath := filepath.Join(repoRoot, DefaultRelPath)
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("cannot create config directory for %s: %w", DefaultRelPath, err)
	}

	openFlags := os.O_CREATE | os.O_WRONLY | os.O_EXCL
	if force {
		openFlags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(configPath, openFlags, 0o644)
	if err != nil {
		if os.IsExist(err) && !force {
			return "", &Error{
				Message: fmt.Sprintf("config file at %s already exists", DefaultRelPath),
				Hints:   []string{"Rerun with --force to overwrite it."},
				Err:     err,
			}
		}
		return "", fmt.Errorf("cannot write config file at %s: %w", DefaultRelPath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := file.WriteString(StarterTemplate); err != nil {
		return "", fmt.Errorf("cannot write config file at %s: %w", DefaultRelPath, err)
	}
	return configPath, nil
}
