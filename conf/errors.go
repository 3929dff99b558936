package conf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModelType is returned when the `type` key of an
// experiment names no known model variant.
var ErrUnknownModelType = errors.New("unrecognized model type")

// ConfigError reports a configuration that cannot be used: a missing
// required key, a placeholder that cannot be resolved, malformed YAML
// or a malformed value.
type ConfigError struct {
	Key    string // offending key, if any
	Reason string
	Err    error // underlying error, if any
}

func (e *ConfigError) Error() string {
	var msg strings.Builder
	msg.WriteString("config error")
	if e.Key != "" {
		msg.WriteString(fmt.Sprintf(" in `%s`", e.Key))
	}
	msg.WriteString(": ")
	msg.WriteString(e.Reason)
	if e.Err != nil {
		msg.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return msg.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(key, reason string, err error) *ConfigError {
	return &ConfigError{Key: key, Reason: reason, Err: err}
}

// IsConfigError checks if an error is a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
