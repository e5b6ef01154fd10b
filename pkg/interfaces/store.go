package interfaces

import (
	"context"

	"classroom/pkg/types"
)

// RoomStore is the durable event log behind the coordinator. Rooms are keyed
// by their external identifier; the event sequence is append-ordered and is
// the authoritative record the in-memory registry can always be rebuilt from.
type RoomStore interface {
	// FindRoomByKey retrieves a room by its identifier.
	// Returns ErrRoomNotFound when the room does not exist.
	FindRoomByKey(ctx context.Context, roomID string) (*types.Room, error)

	// CreateRoom creates a new room in its initial state
	// (NOT_STARTED, inactive). Returns ErrRoomExists for duplicates.
	CreateRoom(ctx context.Context, roomID string) (*types.Room, error)

	// AppendEvent durably appends an event to a room's log. Append order is
	// preserved per room regardless of event timestamps.
	AppendEvent(ctx context.Context, roomID string, event *types.Event) error

	// UpdateStatus atomically updates a room's active flag and status.
	UpdateStatus(ctx context.Context, roomID string, active bool, status types.RoomStatus) error

	// ListRooms returns all rooms, newest first.
	ListRooms(ctx context.Context) ([]*types.Room, error)

	// RoomEvents returns a room's full event log in append order.
	RoomEvents(ctx context.Context, roomID string) ([]*types.Event, error)

	// HealthCheck verifies store connectivity and basic operation.
	HealthCheck(ctx context.Context) error

	// Close flushes pending writes and closes the store.
	Close() error
}
