package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

type hclManifest struct {
	Version     *int         `hcl:"version,optional"`
	Concurrency *int         `hcl:"concurrency,optional"`
	FailFast    *bool        `hcl:"fail_fast,optional"`
	Defaults    *hclDefaults `hcl:"defaults,block"`
	Checks      []hclCheck   `hcl:"check,block"`
	Report      *hclReport   `hcl:"report,block"`
}

type hclDefaults struct {
	Timeout string            `hcl:"timeout,optional"`
	Dir     string            `hcl:"dir,optional"`
	Env     map[string]string `hcl:"env,optional"`
}

type hclCheck struct {
	Name     string            `hcl:"name,label"`
	Run      []string          `hcl:"run,optional"`
	Shell    string            `hcl:"shell,optional"`
	Dir      string            `hcl:"dir,optional"`
	Env      map[string]string `hcl:"env,optional"`
	Timeout  string            `hcl:"timeout,optional"`
	Requires []string          `hcl:"requires,optional"`
	Optional bool              `hcl:"optional,optional"`
	Expect   *hclExpect        `hcl:"expect,block"`
}

type hclExpect struct {
	ExitCode          *int     `hcl:"exit_code,optional"`
	StdoutContains    []string `hcl:"stdout_contains,optional"`
	StdoutNotContains []string `hcl:"stdout_not_contains,optional"`
	StdoutMatches     string   `hcl:"stdout_matches,optional"`
	StderrContains    []string `hcl:"stderr_contains,optional"`
	StderrMatches     string   `hcl:"stderr_matches,optional"`
	StderrEmpty       bool     `hcl:"stderr_empty,optional"`
}

type hclReport struct {
	JSONL       string    `hcl:"jsonl,optional"`
	Markdown    string    `hcl:"markdown,optional"`
	MetricsFile string    `hcl:"metrics_file,optional"`
	LogDir      string    `hcl:"log_dir,optional"`
	Redis       *hclRedis `hcl:"redis,block"`
	NATS        *hclNATS  `hcl:"nats,block"`
}

type hclRedis struct {
	Addr      string `hcl:"addr"`
	Password  string `hcl:"password,optional"`
	DB        int    `hcl:"db,optional"`
	KeyPrefix string `hcl:"key_prefix,optional"`
	History   int    `hcl:"history,optional"`
}

type hclNATS struct {
	URL     string `hcl:"url"`
	Subject string `hcl:"subject,optional"`
}

func parseHCL(path string, content []byte) (fileManifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return fileManifest{}, hclError(path, "cannot parse config file", diags)
	}

	var parsed hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return fileManifest{}, hclError(path, "cannot decode config file", diags)
	}
	return parsed.toFile(), nil
}

func hclError(path string, message string, diags hcl.Diagnostics) *Error {
	hints := make([]string, 0, len(diags))
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		hint := diag.Summary
		if diag.Detail != "" {
			hint += ": " + diag.Detail
		}
		if diag.Subject != nil {
			hint = diag.Subject.String() + ": " + hint
		}
		hints = append(hints, hint)
	}
	return &Error{
		Message: fmt.Sprintf("%s at %s", message, path),
		Hints:   hints,
		Err:     diags,
	}
}

func (m hclManifest) toFile() fileManifest {
	raw := fileManifest{}
	if m.Version != nil {
		raw.Version = *m.Version
	}
	if m.Concurrency != nil {
		raw.Concurrency = *m.Concurrency
	}
	if m.FailFast != nil {
		raw.FailFast = *m.FailFast
	}
	if m.Defaults != nil {
		raw.Defaults = fileDefaults{
			Timeout: m.Defaults.Timeout,
			Dir:     m.Defaults.Dir,
			Env:     m.Defaults.Env,
		}
	}
	for _, check := range m.Checks {
		converted := fileCheck{
			Name:     check.Name,
			Run:      check.Run,
			Shell:    check.Shell,
			Dir:      check.Dir,
			Env:      check.Env,
			Timeout:  check.Timeout,
			Requires: check.Requires,
			Optional: check.Optional,
		}
		if check.Expect != nil {
			converted.Expect = fileExpect{
				ExitCode:          check.Expect.ExitCode,
				StdoutContains:    check.Expect.StdoutContains,
				StdoutNotContains: check.Expect.StdoutNotContains,
				StdoutMatches:     check.Expect.StdoutMatches,
				StderrContains:    check.Expect.StderrContains,
				StderrMatches:     check.Expect.StderrMatches,
				StderrEmpty:       check.Expect.StderrEmpty,
			}
		}
		raw.Checks = append(raw.Checks, converted)
	}
	if m.Report != nil {
		raw.Report = fileReport{
			JSONL:       m.Report.JSONL,
			Markdown:    m.Report.Markdown,
			MetricsFile: m.Report.MetricsFile,
			LogDir:      m.Report.LogDir,
		}
		if m.Report.Redis != nil {
			redis := fileRedis(*m.Report.Redis)
			raw.Report.Redis = &redis
		}
		if m.Report.NATS != nil {
			nats := fileNATS(*m.Report.NATS)
			raw.Report.NATS = &nats
		}
	}
	return raw
}
