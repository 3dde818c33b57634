package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CommandLogger writes the stdout/stderr of each executed command to its own
// file under logDir.
type CommandLogger struct {
	logDir string
}

// NewCommandLogger creates a new command logger. An empty logDir disables it.
func NewCommandLogger(logDir string) *CommandLogger {
	return &CommandLogger{
		logDir: logDir,
	}
}

// CommandRecord is everything the logger needs about one finished command.
type CommandRecord struct {
	Label     string
	Command   []string
	Dir       string
	Stdout    string
	Stderr    string
	ExitCode  int
	Err       error
	StartTime time.Time
	Elapsed   time.Duration
}

// LogCommand writes record to a timestamped file and returns its path.
func (cl *CommandLogger) LogCommand(record CommandRecord) (string, error) {
	if cl == nil || cl.logDir == "" {
		return "", nil
	}

	if err := os.MkdirAll(cl.logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := record.StartTime.UTC().Format("20060102_150405_000000")
	name := record.Label
	if name == "" {
		name = strings.Join(record.Command[:min(3, len(record.Command))], "_")
	}
	logFilePath := filepath.Join(cl.logDir, fmt.Sprintf("%s_%s.log", timestamp, safeFileName(name)))

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "Command: %s\n", strings.Join(record.Command, " "))
	if record.Dir != "" {
		fmt.Fprintf(logFile, "Dir: %s\n", record.Dir)
	}
	fmt.Fprintf(logFile, "Start Time: %s\n", record.StartTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(logFile, "Elapsed: %s\n", record.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(logFile, "Exit Code: %d\n", record.ExitCode)

	if record.Err != nil {
		fmt.Fprintf(logFile, "Error: %v\n", record.Err)
	}

	if record.Stdout != "" {
		fmt.Fprintf(logFile, "\n=== STDOUT ===\n%s\n", record.Stdout)
	} else {
		fmt.Fprintf(logFile, "\n=== STDOUT ===\n(no output)\n")
	}

	if record.Stderr != "" {
		fmt.Fprintf(logFile, "\n=== STDERR ===\n%s\n", record.Stderr)
	} else {
		fmt.Fprintf(logFile, "\n=== STDERR ===\n(no output)\n")
	}

	return logFilePath, nil
}

func safeFileName(name string) string {
	replacer := strings.NewReplacer("/", "_", " ", "_", string(os.PathSeparator), "_", ":", "_")
	return replacer.Replace(name)
}
