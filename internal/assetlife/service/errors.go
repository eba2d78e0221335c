package service

import "errors"

var (
	// ErrValidation marks a malformed request. The wrapped message says
	// which field was wrong.
	ErrValidation = errors.New("invalid request")

	// ErrInvalidState marks a request that is well formed but not allowed
	// for the record's current state.
	ErrInvalidState = errors.New("invalid state")
)
