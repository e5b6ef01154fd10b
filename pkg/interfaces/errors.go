package interfaces

import "errors"

// Common interface errors used across components
var (
	ErrRoomNotFound = errors.New("classroom not found")
	ErrRoomExists   = errors.New("classroom already exists")
)
