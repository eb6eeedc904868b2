package rules

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a malformed or contradictory rule table entry.
// It is raised once, when an Engine is built, never during evaluation.
type ConfigurationError struct {
	// Position is the 1-based index of the offending rule in the table.
	Position int

	// Rule is the offending rule's name.
	Rule string

	// Reason is a human-readable description.
	Reason string

	// Err is the underlying parse error, if any.
	Err error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("rule %d (%q): %s", e.Position, e.Rule, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
