package hashing

import "errors"

// Sentinel errors returned by the [Registry].
//
// Record and configuration errors come from package mcf; use [errors.Is]
// for both:
//
//	h, err := reg.Identify(record)
//	if errors.Is(err, hashing.ErrHandlerNotFound) {
//	    // no registered format claims the record
//	}
var (
	// ErrHandlerNotFound is returned by [Registry.Lookup] and
	// [Registry.Identify] when no registered handler matches.
	ErrHandlerNotFound = errors.New("hashing: handler not found")

	// ErrEmptyName is returned by [Registry.Register] when the handler
	// reports an empty name.
	ErrEmptyName = errors.New("hashing: handler name must not be empty")

	// ErrNilHandler is returned by [Registry.Register] when a nil handler
	// is supplied.
	ErrNilHandler = errors.New("hashing: handler must not be nil")
)
