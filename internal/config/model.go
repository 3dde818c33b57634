package config

import (
	"regexp"
	"time"
)

const (
	DefaultRelPath     = ".cmdverify/config.yaml"
	DefaultHCLRelPath  = ".cmdverify/config.hcl"
	DefaultTimeout     = 60 * time.Second
	DefaultConcurrency = 1
	MaxConcurrency     = 64
	DefaultHistory     = 50
	SupportedVersion   = 1
)

// Manifest is the validated, path-resolved form of a config file.
type Manifest struct {
	Path        string
	Version     int
	Concurrency int
	FailFast    bool
	Checks      []Check
	Report      Report
}

type Check struct {
	Name     string
	Run      []string
	Shell    string
	Dir      string
	Env      map[string]string
	Timeout  time.Duration
	Requires []string
	Optional bool
	Expect   Expect
}

// Command returns the argv to execute. Shell checks run under sh -c.
func (c Check) Command() []string {
	if c.Shell != "" {
		return []string{"sh", "-c", c.Shell}
	}
	return append([]string(nil), c.Run...)
}

type Expect struct {
	ExitCode          int
	StdoutContains    []string
	StdoutNotContains []string
	StdoutMatches     *regexp.Regexp
	StderrContains    []string
	StderrMatches     *regexp.Regexp
	StderrEmpty       bool
}

type Report struct {
	JSONL       string
	Markdown    string
	MetricsFile string
	LogDir      string
	Redis       *RedisReport
	NATS        *NATSReport
}

type RedisReport struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	History   int
}

type NATSReport struct {
	URL     string
	Subject string
}

// CheckNames lists check names in manifest order.
func (m Manifest) CheckNames() []string {
	names := make([]string, 0, len(m.Checks))
	for _, check := range m.Checks {
		names = append(names, check.Name)
	}
	return names
}

// fileManifest mirrors the on-disk layout shared by the YAML and HCL formats.
type fileManifest struct {
	Version     int          `yaml:"version"`
	Concurrency int          `yaml:"concurrency"`
	FailFast    bool         `yaml:"fail_fast"`
	Defaults    fileDefaults `yaml:"defaults"`
	Checks      []fileCheck  `yaml:"checks"`
	Report      fileReport   `yaml:"report"`
}

type fileDefaults struct {
	Timeout string            `yaml:"timeout"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`
}

type fileCheck struct {
	Name     string            `yaml:"name"`
	Run      []string          `yaml:"run"`
	Shell    string            `yaml:"shell"`
	Dir      string            `yaml:"dir"`
	Env      map[string]string `yaml:"env"`
	Timeout  string            `yaml:"timeout"`
	Requires []string          `yaml:"requires"`
	Optional bool              `yaml:"optional"`
	Expect   fileExpect        `yaml:"expect"`
}

type fileExpect struct {
	ExitCode          *int     `yaml:"exit_code"`
	StdoutContains    []string `yaml:"stdout_contains"`
	StdoutNotContains []string `yaml:"stdout_not_contains"`
	StdoutMatches     string   `yaml:"stdout_matches"`
	StderrContains    []string `yaml:"stderr_contains"`
	StderrMatches     string   `yaml:"stderr_matches"`
	StderrEmpty       bool     `yaml:"stderr_empty"`
}

type fileReport struct {
	JSONL       string     `yaml:"jsonl"`
	Markdown    string     `yaml:"markdown"`
	MetricsFile string     `yaml:"metrics_file"`
	LogDir      string     `yaml:"log_dir"`
	Redis       *fileRedis `yaml:"redis"`
	NATS        *fileNATS  `yaml:"nats"`
}

type fileRedis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	History   int    `yaml:"history"`
}

type fileNATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}
