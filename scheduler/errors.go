package scheduler

import (
	"errors"
	"fmt"
)

// ErrJobIDParseFailed indicates parsing job ID from output failed
var ErrJobIDParseFailed = errors.New("failed to parse job ID from scheduler output")

// SubmissionError represents an error during job submission
type SubmissionError struct {
	Script string // submitted script
	Output string // scheduler output
	Err    error  // underlying error
}

func (e *SubmissionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("PBS submission failed for %s: %v\nOutput: %s", e.Script, e.Err, e.Output)
	}
	return fmt.Sprintf("PBS submission failed for %s: %v", e.Script, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// NewSubmissionError creates a new SubmissionError
func NewSubmissionError(script string, output string, err error) *SubmissionError {
	return &SubmissionError{Script: script, Output: output, Err: err}
}

// IsSubmissionError checks if an error is a SubmissionError
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}
