package types

import (
	"strings"
	"testing"
	"time"
)

func TestIsValidRoomID(t *testing.T) {
	valid := []string{"math-101", "room_1", "A", "abc-DEF_123", strings.Repeat("x", 50)}
	for _, id := range valid {
		if !IsValidRoomID(id) {
			t.Errorf("Expected room ID %q to be valid", id)
		}
	}

	invalid := []string{"", "room 1", "room.1", "room/1", "röom", strings.Repeat("x", 51)}
	for _, id := range invalid {
		if IsValidRoomID(id) {
			t.Errorf("Expected room ID %q to be invalid", id)
		}
	}
}

func TestIsValidUserID(t *testing.T) {
	if !IsValidUserID("teacher-1") {
		t.Error("Expected teacher-1 to be a valid user ID")
	}
	if IsValidUserID("") {
		t.Error("Expected empty user ID to be invalid")
	}
	if IsValidUserID("user with spaces") {
		t.Error("Expected user ID with spaces to be invalid")
	}
}

func TestIsValidRole(t *testing.T) {
	if !IsValidRole(RoleTeacher) || !IsValidRole(RoleStudent) {
		t.Error("Expected TEACHER and STUDENT to be valid roles")
	}
	if IsValidRole("ADMIN") || IsValidRole("") || IsValidRole("teacher") {
		t.Error("Expected unknown roles to be invalid")
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, status := range []RoomStatus{StatusNotStarted, StatusOngoing, StatusEnded} {
		if !IsValidStatus(status) {
			t.Errorf("Expected status %s to be valid", status)
		}
	}
	if IsValidStatus("PAUSED") || IsValidStatus("") {
		t.Error("Expected unknown statuses to be invalid")
	}
}

func TestEventValidate_MembershipEvents(t *testing.T) {
	event := &Event{
		ID:        "event-1",
		Kind:      EventEnter,
		UserID:    "student-1",
		Role:      RoleStudent,
		Timestamp: time.Now(),
	}
	if err := event.Validate(); err != nil {
		t.Errorf("Expected valid ENTER event, got error: %v", err)
	}

	event.UserID = ""
	if err := event.Validate(); err != ErrInvalidUserID {
		t.Errorf("Expected ErrInvalidUserID for ENTER without user, got %v", err)
	}

	event.UserID = "student-1"
	event.Role = ""
	if err := event.Validate(); err != ErrInvalidRole {
		t.Errorf("Expected ErrInvalidRole for ENTER without role, got %v", err)
	}

	exit := &Event{ID: "event-2", Kind: EventExit, UserID: "t1", Role: RoleTeacher, Timestamp: time.Now()}
	if err := exit.Validate(); err != nil {
		t.Errorf("Expected valid EXIT event, got error: %v", err)
	}
}

func TestEventValidate_LifecycleEvents(t *testing.T) {
	event := &Event{ID: "event-1", Kind: EventStartClass, Timestamp: time.Now()}
	if err := event.Validate(); err != nil {
		t.Errorf("Expected valid START_CLASS event, got error: %v", err)
	}

	event.UserID = "teacher-1"
	if err := event.Validate(); err != ErrEventRoleNotAllowed {
		t.Errorf("Expected ErrEventRoleNotAllowed for START_CLASS with user, got %v", err)
	}

	end := &Event{ID: "event-2", Kind: EventEndClass, Role: RoleTeacher, Timestamp: time.Now()}
	if err := end.Validate(); err != ErrEventRoleNotAllowed {
		t.Errorf("Expected ErrEventRoleNotAllowed for END_CLASS with role, got %v", err)
	}
}

func TestEventValidate_UnknownKind(t *testing.T) {
	event := &Event{ID: "event-1", Kind: "PAUSE_CLASS", Timestamp: time.Now()}
	if err := event.Validate(); err != ErrInvalidEventKind {
		t.Errorf("Expected ErrInvalidEventKind, got %v", err)
	}
}

func TestRoomValidate_ActiveStatusCoupling(t *testing.T) {
	room := &Room{RoomID: "math-101", Active: true, Status: StatusOngoing}
	if err := room.Validate(); err != nil {
		t.Errorf("Expected active ONGOING room to validate, got %v", err)
	}

	room = &Room{RoomID: "math-101", Active: false, Status: StatusNotStarted}
	if err := room.Validate(); err != nil {
		t.Errorf("Expected inactive NOT_STARTED room to validate, got %v", err)
	}

	room = &Room{RoomID: "math-101", Active: true, Status: StatusEnded}
	if err := room.Validate(); err != ErrActiveStatusMismatch {
		t.Errorf("Expected ErrActiveStatusMismatch for active ENDED room, got %v", err)
	}

	room = &Room{RoomID: "math-101", Active: false, Status: StatusOngoing}
	if err := room.Validate(); err != ErrActiveStatusMismatch {
		t.Errorf("Expected ErrActiveStatusMismatch for inactive ONGOING room, got %v", err)
	}
}

func TestRoomValidate_BadIdentifiers(t *testing.T) {
	room := &Room{RoomID: "", Active: false, Status: StatusNotStarted}
	if err := room.Validate(); err != ErrInvalidRoomID {
		t.Errorf("Expected ErrInvalidRoomID, got %v", err)
	}

	room = &Room{RoomID: "math-101", Active: false, Status: "UNKNOWN"}
	if err := room.Validate(); err != ErrInvalidStatus {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}
