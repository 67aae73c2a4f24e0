// Package apperr defines the error taxonomy shared by the pipeline, the
// matcher and the HTTP layer. Callers classify with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation means the input was malformed; nothing was changed.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState means the operation is not legal in the current state.
	// The caller should re-fetch and decide again.
	ErrInvalidState = errors.New("invalid state")

	ErrNotOwner      = errors.New("not owner")
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")

	// ErrUpstreamUnavailable means storage or the directory could not be
	// reached. It is never retried inside the core.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
