package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed marks a payload that cannot be decoded into a change.
	ErrMalformed = errors.New("malformed selection change")

	// ErrNoEvent marks a payload that decodes to nothing worth reporting,
	// such as an edit of unknown type. It is not a failure.
	ErrNoEvent = errors.New("no selection event")
)

// DecodeError reports the payload key that failed to decode.
type DecodeError struct {
	Key   string
	Value any
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("decode %s=%v: %v", e.Key, e.Value, e.Err)
}

// Unwrap exposes both ErrMalformed and the underlying cause to errors.Is.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}
