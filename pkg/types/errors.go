package types

import "errors"

// Validation error types shared by every component that checks inbound data
var (
	ErrInvalidRoomID        = errors.New("room ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidUserID        = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidRole          = errors.New("role must be 'TEACHER' or 'STUDENT'")
	ErrInvalidStatus        = errors.New("status must be 'NOT_STARTED', 'ONGOING' or 'ENDED'")
	ErrInvalidEventKind     = errors.New("event kind must be 'ENTER', 'EXIT', 'START_CLASS' or 'END_CLASS'")
	ErrEventRoleNotAllowed  = errors.New("lifecycle events must not carry a user ID or role")
	ErrActiveStatusMismatch = errors.New("isActive must be true exactly when status is ONGOING")
)
