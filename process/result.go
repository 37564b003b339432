package process

import (
	"fmt"
	"strings"
	"time"
)

// Result holds the output and status of a completed subprocess.
type Result struct {
	// Stdout is the captured standard output.
	Stdout []byte
	// Stderr is the captured standard error.
	Stderr []byte
	// ExitCode is the process exit code. -1 if the process was killed or never started.
	ExitCode int
	// Duration is how long the process ran.
	Duration time.Duration
}

// maxStderrTail bounds how much stderr an ExitError carries.
const maxStderrTail = 512

// ExitError reports a subprocess that failed to start or exited non-zero.
type ExitError struct {
	Binary   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("process: %s exit code %d: %v: %s", e.Binary, e.ExitCode, e.Err, e.Stderr)
	}
	return fmt.Sprintf("process: %s exit code %d: %v", e.Binary, e.ExitCode, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// stderrTail returns the last maxStderrTail bytes of stderr, trimmed.
func stderrTail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > maxStderrTail {
		s = "..." + s[len(s)-maxStderrTail:]
	}
	return s
}
