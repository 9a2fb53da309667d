package observer

import "errors"

var (
	// ErrInvalidApplication is returned when a process cannot be observed,
	// either because the provider refused it or because it has exited.
	// Registration can be retried later.
	ErrInvalidApplication = errors.New("invalid application")

	// ErrInvalidToken is returned when stopping a token that is unknown or
	// already stopped. Callers log it and continue.
	ErrInvalidToken = errors.New("invalid observer token")
)
