package session

import "errors"

// Binding table error types
var (
	ErrAlreadyBound = errors.New("connection is already bound to a classroom")
	ErrNotBound     = errors.New("connection is not bound to a classroom")
)
