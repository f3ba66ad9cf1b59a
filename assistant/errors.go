// Package assistant defines the wire-level value types shared by the
// Threadline Assistants API: messages, tools, tool choices, response formats,
// and truncation controls. The types here mirror the JSON contract exactly and
// carry their own validation so malformed values are rejected before a request
// ever leaves the client.
package assistant

import "fmt"

// ValidationError indicates a wire value was rejected before reaching the API.
type ValidationError struct {
	msg string
}

// Error implements error.
func (e ValidationError) Error() string {
	return e.msg
}

// NewValidationError returns a ValidationError with formatted message.
func NewValidationError(format string, args ...any) ValidationError {
	return ValidationError{msg: fmt.Sprintf(format, args...)}
}
