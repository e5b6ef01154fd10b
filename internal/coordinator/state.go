package coordinator

import (
	"classroom/pkg/types"
)

// Classroom lifecycle state machine:
// NOT_STARTED -> ONGOING -> ENDED, with ENDED terminal. No transition skips
// a state and nothing leaves ENDED.

// joinEligibility decides whether a participant with the given role may join
// a room in the given state. Teachers join any non-terminal room; students
// only join an ongoing class; nobody joins an ended room.
func joinEligibility(status types.RoomStatus, role types.Role) error {
	if status == types.StatusEnded {
		return ErrRoomClosed
	}
	if role == types.RoleStudent && status != types.StatusOngoing {
		return ErrClassNotStarted
	}
	return nil
}

// startTransition validates the start-class transition. Allowed only from
// NOT_STARTED; a second start is rejected rather than ignored.
func startTransition(status types.RoomStatus) error {
	switch status {
	case types.StatusNotStarted:
		return nil
	case types.StatusOngoing:
		return ErrClassAlreadyStarted
	default:
		return ErrRoomClosed
	}
}

// endTransition validates the end-class transition. Allowed only from
// ONGOING; ending a class that never started is an error, not a skip to
// ENDED.
func endTransition(status types.RoomStatus) error {
	switch status {
	case types.StatusOngoing:
		return nil
	case types.StatusNotStarted:
		return ErrClassNotStarted
	default:
		return ErrRoomClosed
	}
}
