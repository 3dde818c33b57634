package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var checkNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// normalize applies defaults, resolves paths against repoRoot and validates
// every check. All problems are collected into a single Error so one run of
// `cmdverify validate` lists everything that needs fixing.
func normalize(raw fileManifest, repoRoot string, path string, getenv func(string) string) (Manifest, error) {
	var problems []string
	addProblem := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	manifest := Manifest{
		Path:        path,
		Version:     raw.Version,
		Concurrency: raw.Concurrency,
		FailFast:    raw.FailFast,
	}
	if manifest.Version == 0 {
		manifest.Version = SupportedVersion
	}
	if manifest.Version != SupportedVersion {
		addProblem("version: unsupported manifest version %d (supported: %d)", manifest.Version, SupportedVersion)
	}
	if manifest.Concurrency == 0 {
		manifest.Concurrency = DefaultConcurrency
	}
	if manifest.Concurrency < 1 || manifest.Concurrency > MaxConcurrency {
		addProblem("concurrency: must be between 1 and %d, got %d", MaxConcurrency, manifest.Concurrency)
	}

	defaultTimeout := DefaultTimeout
	if raw.Defaults.Timeout != "" {
		parsed, err := parsePositiveDuration(raw.Defaults.Timeout)
		if err != nil {
			addProblem("defaults.timeout: %v", err)
		} else {
			defaultTimeout = parsed
		}
	}
	defaultDir := resolveDir(repoRoot, raw.Defaults.Dir)

	if len(raw.Checks) == 0 {
		addProblem("checks: at least one check is required")
	}
	seen := map[string]bool{}
	for i, rawCheck := range raw.Checks {
		label := fmt.Sprintf("checks[%d]", i)
		name := strings.TrimSpace(rawCheck.Name)
		if name != "" {
			label = fmt.Sprintf("checks[%d] (%s)", i, name)
		}
		switch {
		case name == "":
			addProblem("%s: name is required", label)
		case !checkNamePattern.MatchString(name):
			addProblem("%s: name may only contain letters, digits, '.', '_' and '-'", label)
		case seen[name]:
			addProblem("%s: duplicate check name %q", label, name)
		}
		seen[name] = true

		check := Check{
			Name:     name,
			Run:      rawCheck.Run,
			Shell:    strings.TrimSpace(rawCheck.Shell),
			Dir:      defaultDir,
			Env:      mergeEnv(raw.Defaults.Env, rawCheck.Env, getenv),
			Timeout:  defaultTimeout,
			Requires: trimmed(rawCheck.Requires),
			Optional: rawCheck.Optional,
		}
		hasRun := len(rawCheck.Run) > 0
		hasShell := check.Shell != ""
		switch {
		case hasRun && hasShell:
			addProblem("%s: set either run or shell, not both", label)
		case !hasRun && !hasShell:
			addProblem("%s: one of run or shell is required", label)
		case hasRun && strings.TrimSpace(rawCheck.Run[0]) == "":
			addProblem("%s: run[0] must name an executable", label)
		}
		if rawCheck.Dir != "" {
			check.Dir = resolveDir(repoRoot, rawCheck.Dir)
		}
		if rawCheck.Timeout != "" {
			parsed, err := parsePositiveDuration(rawCheck.Timeout)
			if err != nil {
				addProblem("%s: timeout: %v", label, err)
			} else {
				check.Timeout = parsed
			}
		}

		expect := Expect{
			StdoutContains:    rawCheck.Expect.StdoutContains,
			StdoutNotContains: rawCheck.Expect.StdoutNotContains,
			StderrContains:    rawCheck.Expect.StderrContains,
			StderrEmpty:       rawCheck.Expect.StderrEmpty,
		}
		if rawCheck.Expect.ExitCode != nil {
			expect.ExitCode = *rawCheck.Expect.ExitCode
			if expect.ExitCode < 0 || expect.ExitCode > 255 {
				addProblem("%s: expect.exit_code must be between 0 and 255", label)
			}
		}
		if pattern := rawCheck.Expect.StdoutMatches; pattern != "" {
			compiled, err := regexp.Compile(pattern)
			if err != nil {
				addProblem("%s: expect.stdout_matches: %v", label, err)
			}
			expect.StdoutMatches = compiled
		}
		if pattern := rawCheck.Expect.StderrMatches; pattern != "" {
			compiled, err := regexp.Compile(pattern)
			if err != nil {
				addProblem("%s: expect.stderr_matches: %v", label, err)
			}
			expect.StderrMatches = compiled
		}
		check.Expect = expect
		manifest.Checks = append(manifest.Checks, check)
	}

	manifest.Report = Report{
		JSONL:       resolveFile(repoRoot, raw.Report.JSONL),
		Markdown:    resolveFile(repoRoot, raw.Report.Markdown),
		MetricsFile: resolveFile(repoRoot, raw.Report.MetricsFile),
		LogDir:      resolveFile(repoRoot, raw.Report.LogDir),
	}
	if redis := raw.Report.Redis; redis != nil {
		if strings.TrimSpace(redis.Addr) == "" {
			addProblem("report.redis.addr: address is required")
		}
		manifest.Report.Redis = &RedisReport{
			Addr:      strings.TrimSpace(redis.Addr),
			Password:  os.Expand(redis.Password, getenv),
			DB:        redis.DB,
			KeyPrefix: firstNonEmpty(redis.KeyPrefix, "cmdverify"),
			History:   redis.History,
		}
		if manifest.Report.Redis.History <= 0 {
			manifest.Report.Redis.History = DefaultHistory
		}
	}
	if nats := raw.Report.NATS; nats != nil {
		if strings.TrimSpace(nats.URL) == "" {
			addProblem("report.nats.url: url is required")
		}
		manifest.Report.NATS = &NATSReport{
			URL:     strings.TrimSpace(nats.URL),
			Subject: firstNonEmpty(nats.Subject, "cmdverify.events"),
		}
	}

	if len(problems) > 0 {
		return Manifest{}, &Error{
			Message: fmt.Sprintf("config file at %s is invalid (%d problem%s)", path, len(problems), plural(len(problems))),
			Hints:   problems,
		}
	}
	return manifest, nil
}

func parsePositiveDuration(value string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", value)
	}
	return parsed, nil
}

func resolveDir(repoRoot string, dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return repoRoot
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(repoRoot, dir)
}

func resolveFile(repoRoot string, path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return resolveDir(repoRoot, path)
}

func mergeEnv(defaults map[string]string, overrides map[string]string, getenv func(string) string) map[string]string {
	if len(defaults) == 0 && len(overrides) == 0 {
		return nil
	}
	merged := make(map[string]string, len(defaults)+len(overrides))
	for key, value := range defaults {
		merged[key] = os.Expand(value, getenv)
	}
	for key, value := range overrides {
		merged[key] = os.Expand(value, getenv)
	}
	return merged
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
