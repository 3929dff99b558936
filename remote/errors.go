package remote

import (
	"errors"
	"fmt"
	"strings"
)

// CommandError is returned when a remote command exits with a
// non-zero status, or cannot be run at all.
type CommandError struct {
	Cmd      string
	ExitCode int
	Output   string
	Err      error // transport error, if any
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command `%s` failed: %v", e.Cmd, e.Err)
	}
	msg := fmt.Sprintf("command `%s` exited with status %d", e.Cmd, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ":\n" + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError checks if an error is a CommandError
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
