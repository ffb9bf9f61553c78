// Package apperr holds the sentinel errors shared across mdcal layers.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable reports an optional component that is not running,
	// such as the catalog outside serve.
	ErrUnavailable = errors.New("unavailable")
)
