package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egv/cmdverify/internal/verification"
)

func newRunner(verify func(context.Context) error) (*Runner, *bytes.Buffer, *ExitStatus) {
	stderr := &bytes.Buffer{}
	status := &ExitStatus{}
	return &Runner{Verify: verify, Stderr: stderr, Status: status}, stderr, status
}

func TestRunSuccessLeavesStatusAndStderrUntouched(t *testing.T) {
	runner, stderr, status := newRunner(func(context.Context) error { return nil })

	runner.Run(context.Background())

	assert.Equal(t, 0, status.Code())
	assert.Empty(t, stderr.String())
}

func TestRunGenericErrorPrintsFailureLine(t *testing.T) {
	runner, stderr, status := newRunner(func(context.Context) error { return errors.New("boom") })

	runner.Run(context.Background())

	assert.Equal(t, "❌ Command verification failed: boom\n", stderr.String())
	assert.Equal(t, 1, status.Code())
}

func TestRunConfigurationErrorPrintsHintsInOrder(t *testing.T) {
	runner, stderr, status := newRunner(func(context.Context) error {
		return verification.NewConfigurationError("bad config", "check file X", "set env Y")
	})

	runner.Run(context.Background())

	assert.Equal(t,
		"❌ Command verification failed: bad config\n"+
			"↳ Hint: check file X\n"+
			"↳ Hint: set env Y\n",
		stderr.String())
	assert.Equal(t, 1, status.Code())
}

func TestRunConfigurationErrorWithoutHintsPrintsOnlyFailureLine(t *testing.T) {
	cases := map[string]*verification.ConfigurationError{
		"nil hints":   {Message: "bad config"},
		"empty hints": {Message: "bad config", Hints: []string{}},
	}
	for name, cfgErr := range cases {
		t.Run(name, func(t *testing.T) {
			runner, stderr, status := newRunner(func(context.Context) error { return cfgErr })

			runner.Run(context.Background())

			assert.Equal(t, "❌ Command verification failed: bad config\n", stderr.String())
			assert.Equal(t, 1, status.Code())
		})
	}
}

func TestRunWrappedConfigurationErrorStillPrintsHints(t *testing.T) {
	runner, stderr, _ := newRunner(func(context.Context) error {
		return fmt.Errorf("loading: %w", verification.NewConfigurationError("bad config", "fix it"))
	})

	runner.Run(context.Background())

	assert.Equal(t, "❌ Command verification failed: loading: bad config\n↳ Hint: fix it\n", stderr.String())
}

type hintedError struct{}

func (hintedError) Error() string   { return "generic" }
func (hintedError) Hints() []string { return []string{"ignored"} }

func TestRunGenericErrorNeverPrintsHints(t *testing.T) {
	runner, stderr, _ := newRunner(func(context.Context) error { return hintedError{} })

	runner.Run(context.Background())

	assert.Equal(t, "❌ Command verification failed: generic\n", stderr.String())
}

func TestRunRecoversPanicValues(t *testing.T) {
	runner, stderr, status := newRunner(func(context.Context) error { panic("oops") })

	require.NotPanics(t, func() { runner.Run(context.Background()) })

	assert.Equal(t, "❌ Command verification failed: oops\n", stderr.String())
	assert.Equal(t, 1, status.Code())
}

func TestRunRecoversPanickedConfigurationError(t *testing.T) {
	runner, stderr, _ := newRunner(func(context.Context) error {
		panic(verification.NewConfigurationError("bad config", "hint"))
	})

	runner.Run(context.Background())

	assert.Equal(t, "❌ Command verification failed: bad config\n↳ Hint: hint\n", stderr.String())
}

func TestRunIfEntryPointSkipsWhenNotEntry(t *testing.T) {
	called := false
	runner, stderr, status := newRunner(func(context.Context) error {
		called = true
		return errors.New("boom")
	})

	ran := runner.RunIfEntryPoint(context.Background(), false)

	assert.False(t, ran)
	assert.False(t, called)
	assert.Empty(t, stderr.String())
	assert.Equal(t, 0, status.Code())
}

func TestRunIfEntryPointRunsWhenEntry(t *testing.T) {
	runner, stderr, status := newRunner(func(context.Context) error { return errors.New("boom") })

	ran := runner.RunIfEntryPoint(context.Background(), true)

	assert.True(t, ran)
	assert.Equal(t, "❌ Command verification failed: boom\n", stderr.String())
	assert.Equal(t, 1, status.Code())
}

func TestRunPassesContextToVerify(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")
	var seen any
	runner, _, _ := newRunner(func(ctx context.Context) error {
		seen = ctx.Value(key{})
		return nil
	})

	runner.Run(ctx)

	assert.Equal(t, "value", seen)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, GenericFailure{Message: "42"}, Classify(42))
	assert.Equal(t, GenericFailure{Message: "boom"}, Classify(errors.New("boom")))
	assert.Equal(t,
		ConfigFailure{Message: "bad", Hints: []string{"a"}},
		Classify(verification.NewConfigurationError("bad", "a")))
}
