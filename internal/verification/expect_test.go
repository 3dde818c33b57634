package verification

import (
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/egv/cmdverify/internal/config"
	"github.com/egv/cmdverify/internal/exec"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		expect config.Expect
		result exec.Result
		want   []string
	}{
		{
			name:   "clean exit",
			result: exec.Result{ExitCode: 0},
			want:   []string{},
		},
		{
			name:   "unexpected exit code",
			result: exec.Result{ExitCode: 2},
			want:   []string{"exit code 2, expected 0"},
		},
		{
			name:   "expected non-zero exit",
			expect: config.Expect{ExitCode: 2},
			result: exec.Result{ExitCode: 2},
			want:   []string{},
		},
		{
			name:   "stdout substrings",
			expect: config.Expect{StdoutContains: []string{"go1.", "linux"}, StdoutNotContains: []string{"devel"}},
			result: exec.Result{Stdout: "go version devel go1.25 darwin"},
			want:   []string{`stdout does not contain "linux"`, `stdout contains forbidden "devel"`},
		},
		{
			name:   "stdout pattern",
			expect: config.Expect{StdoutMatches: regexp.MustCompile(`^v\d+`)},
			result: exec.Result{Stdout: "version 3"},
			want:   []string{`stdout does not match /^v\d+/`},
		},
		{
			name: "stderr expectations",
			expect: config.Expect{
				StderrContains: []string{"warning"},
				StderrMatches:  regexp.MustCompile(`deprecated`),
				StderrEmpty:    true,
			},
			result: exec.Result{Stderr: "error: boom\n"},
			want: []string{
				`stderr does not contain "warning"`,
				"stderr does not match /deprecated/",
				"stderr is not empty",
			},
		},
		{
			name:   "whitespace-only stderr counts as empty",
			expect: config.Expect{StderrEmpty: true},
			result: exec.Result{Stderr: "\n  \n"},
			want:   []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := evaluate(config.Check{Name: "c", Expect: tc.expect}, tc.result)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %#v, got %#v", tc.want, got)
			}
		})
	}
}

func TestEvaluateTimeoutHidesOtherReasons(t *testing.T) {
	check := config.Check{
		Name:    "slow",
		Timeout: 10 * time.Second,
		Expect:  config.Expect{StdoutContains: []string{"done"}},
	}

	got := evaluate(check, exec.Result{ExitCode: -1, TimedOut: true})
	want := []string{"timed out after 10s"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}
