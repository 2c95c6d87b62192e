package engram

import "fmt"

// Error is the typed error that crosses the CLI boundary, carrying a short
// machine-readable code alongside its message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds an *Error with a formatted message.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error from an existing error, preserving its text.
func WrapError(code string, err error) *Error {
	return &Error{Code: code, Message: err.Error()}
}
