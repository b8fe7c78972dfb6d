package warn

import "strings"

// ValidationError aggregates every validation failure found before the
// warning transaction is allowed to begin. All accumulated messages are
// reported together.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "warning validation failed: " + strings.Join(e.Messages, "; ")
}

// add records a failure message.
func (e *ValidationError) add(msg string) {
	e.Messages = append(e.Messages, msg)
}

// orNil returns the error only if any failure was recorded.
func (e *ValidationError) orNil() error {
	if len(e.Messages) == 0 {
		return nil
	}
	return e
}
