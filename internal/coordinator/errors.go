package coordinator

import "errors"

// Coordinator error types, mapped onto wire status codes by the operation
// that produced them: 400 for malformed requests, 403 for role and
// lifecycle precondition failures, 404 for absent rooms, 500 for
// persistence failures.
var (
	ErrMissingFields       = errors.New("room ID, user ID, and role are required")
	ErrTeachersOnly        = errors.New("only teachers can perform this action")
	ErrRoomClosed          = errors.New("this class has already ended and cannot be joined")
	ErrClassNotStarted     = errors.New("class has not started yet")
	ErrClassAlreadyStarted = errors.New("class is already ongoing")
)
