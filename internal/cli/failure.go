package cli

import (
	"errors"
	"fmt"

	"github.com/egv/cmdverify/internal/verification"
)

// Failure is what the runner reports for a failed invocation. It is either a
// ConfigFailure or a GenericFailure.
type Failure interface {
	failure()
	Text() string
}

// ConfigFailure is a user-fixable setup problem. Its hints are printed after
// the failure line.
type ConfigFailure struct {
	Message string
	Hints   []string
}

// GenericFailure is any other error or recovered value. Only its message is
// printed.
type GenericFailure struct {
	Message string
}

func (ConfigFailure) failure()  {}
func (GenericFailure) failure() {}

func (f ConfigFailure) Text() string  { return f.Message }
func (f GenericFailure) Text() string { return f.Message }

// Classify turns whatever verification returned or panicked with into a
// Failure. Errors wrapping a *verification.ConfigurationError become
// ConfigFailure; everything else is generic.
func Classify(value any) Failure {
	err, ok := value.(error)
	if !ok {
		return GenericFailure{Message: fmt.Sprint(value)}
	}
	var cfgErr *verification.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr != nil {
		return ConfigFailure{Message: err.Error(), Hints: append([]string(nil), cfgErr.Hints...)}
	}
	return GenericFailure{Message: err.Error()}
}
