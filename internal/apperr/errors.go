package apperr

import "errors"

// Sentinel domain errors. Handlers map these to HTTP statuses at the
// boundary; anything else is an internal failure whose cause stays in
// the log, not the response.
var (
	ErrNotFound   = errors.New("requested resource not found")
	ErrEmailTaken = errors.New("email already registered")
)
