package config

// Error describes a manifest problem together with remediation hints.
type Error struct {
	Message string
	Hints   []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(message string, hints ...string) *Error {
	return &Error{Message: message, Hints: hints}
}
