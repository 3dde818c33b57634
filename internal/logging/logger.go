package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const EnvLogLevel = "CMDVERIFY_LOG_LEVEL"

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewLogger builds the diagnostics logger. Console output is meant for humans
// on stderr; json is for log collectors.
func NewLogger(w io.Writer, level string, format string) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	parsed, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var out io.Writer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case FormatJSON:
		out = w
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (expected %s or %s)", format, FormatConsole, FormatJSON)
	}
	return zerolog.New(out).Level(parsed).With().Timestamp().Logger(), nil
}

// ParseLevel accepts zerolog level names; an empty string means warn.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.WarnLevel, nil
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return parsed, nil
}
