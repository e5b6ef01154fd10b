package types

import (
	"time"
)

// RoomStatus is the lifecycle state of a classroom.
// NOT_STARTED -> ONGOING -> ENDED; ENDED is terminal.
type RoomStatus string

const (
	StatusNotStarted RoomStatus = "NOT_STARTED"
	StatusOngoing    RoomStatus = "ONGOING"
	StatusEnded      RoomStatus = "ENDED"
)

// Role identifies a participant's role within a classroom.
type Role string

const (
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// EventKind is the closed set of lifecycle event types recorded per room.
type EventKind string

const (
	EventEnter      EventKind = "ENTER"
	EventExit       EventKind = "EXIT"
	EventStartClass EventKind = "START_CLASS"
	EventEndClass   EventKind = "END_CLASS"
)

// Inbound message types received over WebSocket connections
const (
	MessageTypeJoinRoom   = "join-room"
	MessageTypeStartClass = "start-class"
	MessageTypeEndClass   = "end-class"
	MessageTypeLeaveRoom  = "leave-room"
)

// Outbound message types sent to connections
const (
	MessageTypeJoinSuccess      = "join-success"
	MessageTypeJoinDenied       = "join-denied"
	MessageTypeClassroomCreated = "classroom-created"
	MessageTypeClassStarted     = "class-started"
	MessageTypeClassEnded       = "class-ended"
	MessageTypeRoomUpdate       = "room-update"
	MessageTypeLeaveSuccess     = "leave-success"
	MessageTypeError            = "error"
)

// Room is the persisted classroom record. The event sequence attached to a
// room is the sole source of truth for audit and reporting; Room itself holds
// the current lifecycle view.
// Invariant: Active == true iff Status == StatusOngoing.
type Room struct {
	RoomID    string     `json:"roomId" db:"room_id"`
	Active    bool       `json:"isActive" db:"is_active"`
	Status    RoomStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// Event is an immutable record appended to a room's event log. Timestamps are
// assigned server-side at append time, never taken from clients. UserID and
// Role are set for ENTER/EXIT and empty for START_CLASS/END_CLASS.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"type"`
	UserID    string    `json:"userId,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the immutable membership/status view broadcast to a room after
// every change. Teachers and students preserve join order.
type Snapshot struct {
	RoomID   string     `json:"roomId"`
	Teachers []string   `json:"teachers"`
	Students []string   `json:"students"`
	Active   bool       `json:"isActive"`
	Status   RoomStatus `json:"status"`
}

// ClientMessage is the inbound wire envelope. Only the fields relevant to the
// message type are populated by clients; everything else is ignored.
type ClientMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	UserID string `json:"userId,omitempty"`
	Role   Role   `json:"role,omitempty"`
}

// ServerMessage is the outbound wire envelope shared by direct replies and
// room broadcasts.
type ServerMessage struct {
	Type    string      `json:"type"`
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
