package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const EnvConfigPath = "CMDVERIFY_CONFIG"

type LoadOptions struct {
	RepoRoot string
	// Path overrides the default manifest location. Relative paths are
	// resolved against the working directory.
	Path   string
	Getenv func(string) string
}

// ResolvePath picks the manifest to load: an explicit path wins, then the
// YAML default, then the HCL default when only that one exists.
func ResolvePath(repoRoot string, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if strings.TrimSpace(repoRoot) == "" {
		repoRoot = "."
	}
	yamlPath := filepath.Join(repoRoot, DefaultRelPath)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	hclPath := filepath.Join(repoRoot, DefaultHCLRelPath)
	if _, err := os.Stat(hclPath); err == nil {
		return hclPath
	}
	return yamlPath
}

func Load(opts LoadOptions) (Manifest, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	repoRoot := opts.RepoRoot
	if strings.TrimSpace(repoRoot) == "" {
		repoRoot = "."
	}
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return Manifest{}, &Error{
			Message: fmt.Sprintf("cannot resolve repository root %q", repoRoot),
			Hints:   []string{"Pass an existing directory with --repo."},
			Err:     err,
		}
	}

	path := ResolvePath(absRoot, opts.Path)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, &Error{
				Message: fmt.Sprintf("config file not found at %s", path),
				Hints: []string{
					"Run `cmdverify init` to write a starter " + DefaultRelPath + ".",
					"Or point at an existing manifest with --config <path> or " + EnvConfigPath + ".",
				},
				Err: err,
			}
		}
		return Manifest{}, &Error{
			Message: fmt.Sprintf("cannot read config file at %s", path),
			Hints:   []string{"Check that the file is readable by the current user."},
			Err:     err,
		}
	}

	var raw fileManifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		raw, err = parseHCL(path, content)
	default:
		raw, err = parseYAML(path, content)
	}
	if err != nil {
		return Manifest{}, err
	}
	return normalize(raw, absRoot, path, opts.Getenv)
}
