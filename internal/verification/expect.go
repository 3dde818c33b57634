package verification

import (
	"fmt"
	"strings"

	"github.com/egv/cmdverify/internal/config"
	"github.com/egv/cmdverify/internal/exec"
)

// evaluate returns the reasons a finished command does not meet the check's
// expectations. An empty slice means the check passed.
func evaluate(check config.Check, result exec.Result) []string {
	if result.TimedOut {
		return []string{"timed out after " + check.Timeout.String()}
	}

	reasons := []string{}
	expect := check.Expect
	if result.ExitCode != expect.ExitCode {
		reasons = append(reasons, fmt.Sprintf("exit code %d, expected %d", result.ExitCode, expect.ExitCode))
	}
	for _, want := range expect.StdoutContains {
		if !strings.Contains(result.Stdout, want) {
			reasons = append(reasons, fmt.Sprintf("stdout does not contain %q", want))
		}
	}
	for _, forbidden := range expect.StdoutNotContains {
		if strings.Contains(result.Stdout, forbidden) {
			reasons = append(reasons, fmt.Sprintf("stdout contains forbidden %q", forbidden))
		}
	}
	if expect.StdoutMatches != nil && !expect.StdoutMatches.MatchString(result.Stdout) {
		reasons = append(reasons, fmt.Sprintf("stdout does not match /%s/", expect.StdoutMatches))
	}
	for _, want := range expect.StderrContains {
		if !strings.Contains(result.Stderr, want) {
			reasons = append(reasons, fmt.Sprintf("stderr does not contain %q", want))
		}
	}
	if expect.StderrMatches != nil && !expect.StderrMatches.MatchString(result.Stderr) {
		reasons = append(reasons, fmt.Sprintf("stderr does not match /%s/", expect.StderrMatches))
	}
	if expect.StderrEmpty && strings.TrimSpace(result.Stderr) != "" {
		reasons = append(reasons, "stderr is not empty")
	}
	return reasons
}
