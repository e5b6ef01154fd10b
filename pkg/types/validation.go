package types

import (
	"regexp"
)

// Compiled once at package initialization; identifier validation runs on
// every inbound join.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidRoomID checks if a room identifier meets format requirements.
// Room IDs are externally assigned opaque keys, 1-50 characters,
// alphanumeric plus underscore/hyphen.
func IsValidRoomID(roomID string) bool {
	if len(roomID) < 1 || len(roomID) > 50 {
		return false
	}
	return identifierRegex.MatchString(roomID)
}

// IsValidUserID checks if a user identifier meets format requirements.
// Same format as room IDs: 1-50 characters, alphanumeric + underscore/hyphen.
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return identifierRegex.MatchString(userID)
}

// IsValidRole checks that a role is one of the two defined roles.
func IsValidRole(role Role) bool {
	return role == RoleTeacher || role == RoleStudent
}

// IsValidStatus checks that a status is one of the three lifecycle states.
func IsValidStatus(status RoomStatus) bool {
	switch status {
	case StatusNotStarted, StatusOngoing, StatusEnded:
		return true
	default:
		return false
	}
}

// Validate enforces the per-kind shape constraints on an event:
// ENTER/EXIT carry a user ID and role, START_CLASS/END_CLASS carry neither.
func (e *Event) Validate() error {
	switch e.Kind {
	case EventEnter, EventExit:
		if !IsValidUserID(e.UserID) {
			return ErrInvalidUserID
		}
		if !IsValidRole(e.Role) {
			return ErrInvalidRole
		}
	case EventStartClass, EventEndClass:
		if e.UserID != "" || e.Role != "" {
			return ErrEventRoleNotAllowed
		}
	default:
		return ErrInvalidEventKind
	}
	return nil
}

// Validate checks the room record's internal consistency: status is a known
// lifecycle state and the active flag mirrors ONGOING exactly.
func (r *Room) Validate() error {
	if !IsValidRoomID(r.RoomID) {
		return ErrInvalidRoomID
	}
	if !IsValidStatus(r.Status) {
		return ErrInvalidStatus
	}
	if r.Active != (r.Status == StatusOngoing) {
		return ErrActiveStatusMismatch
	}
	return nil
}
