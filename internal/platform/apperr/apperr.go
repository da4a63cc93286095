package apperr

import "errors"

var (
	// ErrNotFound is the sentinel for resources that do not resolve.
	ErrNotFound = errors.New("not found")
	// ErrNotReady marks a document that has not finished processing.
	ErrNotReady = errors.New("document not ready")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
