package verification

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a manifest or engine setup problem the user can
// fix. Hints are remediation steps, printed in order.
type ConfigurationError struct {
	Message string
	Hints   []string
	Err     error
}

func NewConfigurationError(message string, hints ...string) *ConfigurationError {
	return &ConfigurationError{Message: message, Hints: compactHints(hints)}
}

func WrapConfigurationError(err error, message string, hints ...string) *ConfigurationError {
	if err != nil {
		message = message + ": " + err.Error()
	}
	return &ConfigurationError{Message: message, Hints: compactHints(hints), Err: err}
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailedError is returned when the manifest loaded and ran but at least one
// check did not pass.
type FailedError struct {
	Total  int
	Failed []string
}

func (e *FailedError) Error() string {
	if e == nil {
		return ""
	}
	noun := "checks"
	if e.Total == 1 {
		noun = "check"
	}
	return fmt.Sprintf("%d of %d %s failed: %s", len(e.Failed), e.Total, noun, strings.Join(e.Failed, ", "))
}

func compactHints(hints []string) []string {
	out := make([]string, 0, len(hints))
	for _, hint := range hints {
		hint = strings.TrimSpace(hint)
		if hint != "" {
			out = append(out, hint)
		}
	}
	return out
}
