package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"classroom/internal/registry"
	"classroom/internal/session"
	"classroom/pkg/interfaces"
	"classroom/pkg/types"
)

// Coordinator serializes all membership and lifecycle operations per room,
// keeps the registry consistent with the persisted event log, and issues the
// broadcasts that follow every change.
//
// Every operation on a room runs under that room's exclusive lock for the
// whole read-validate-mutate-persist-broadcast sequence, so events and
// broadcasts observe the exact admission order. Operations on different
// rooms never contend.
type Coordinator struct {
	store    interfaces.RoomStore
	gateway  interfaces.Gateway
	registry *registry.Registry
	bindings *session.Table

	locksMu sync.Mutex
	locks   map[string]*roomLock
}

// roomLock is the per-room serialization point. lastEvent is only touched
// while mu is held and keeps event timestamps strictly monotonic per room
// within a process lifetime; durable ordering comes from the store's append
// sequence.
type roomLock struct {
	mu        sync.Mutex
	lastEvent time.Time
}

// NewCoordinator creates a room coordinator with its dependencies injected.
func NewCoordinator(store interfaces.RoomStore, gateway interfaces.Gateway, reg *registry.Registry, bindings *session.Table) *Coordinator {
	return &Coordinator{
		store:    store,
		gateway:  gateway,
		registry: reg,
		bindings: bindings,
		locks:    make(map[string]*roomLock),
	}
}

// Registry exposes the live membership view for read-side consumers.
func (c *Coordinator) Registry() *registry.Registry {
	return c.registry
}

// Bindings exposes the session binding table for read-side consumers.
func (c *Coordinator) Bindings() *session.Table {
	return c.bindings
}

// lockRoom returns the serialization lock for a room, creating it on first
// use. Lock entries are small and live for the process lifetime.
func (c *Coordinator) lockRoom(roomID string) *roomLock {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()

	l, exists := c.locks[roomID]
	if !exists {
		l = &roomLock{}
		c.locks[roomID] = l
	}
	return l
}

// newEvent builds an event with a server-assigned ID and a timestamp that
// never moves backwards within the room. Caller must hold the room lock.
func (c *Coordinator) newEvent(l *roomLock, kind types.EventKind, userID string, role types.Role) *types.Event {
	ts := time.Now().UTC()
	if !ts.After(l.lastEvent) {
		ts = l.lastEvent.Add(time.Millisecond)
	}
	l.lastEvent = ts

	return &types.Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		UserID:    userID,
		Role:      role,
		Timestamp: ts,
	}
}

// Join admits a participant into a room. Teachers may implicitly create an
// absent room; students joining anything but an ongoing class are denied
// without any state change. On success the participant is bound, an ENTER
// event is persisted, and the updated snapshot is broadcast to the room.
func (c *Coordinator) Join(ctx context.Context, conn interfaces.Connection, roomID, userID string, role types.Role) error {
	if roomID == "" || userID == "" || role == "" {
		c.sendError(conn, http.StatusBadRequest, "Room ID, user ID, and role are required")
		return ErrMissingFields
	}
	if !types.IsValidRoomID(roomID) {
		c.sendError(conn, http.StatusBadRequest, types.ErrInvalidRoomID.Error())
		return types.ErrInvalidRoomID
	}
	if !types.IsValidUserID(userID) {
		c.sendError(conn, http.StatusBadRequest, types.ErrInvalidUserID.Error())
		return types.ErrInvalidUserID
	}
	if !types.IsValidRole(role) {
		c.sendError(conn, http.StatusBadRequest, types.ErrInvalidRole.Error())
		return types.ErrInvalidRole
	}
	if _, bound := c.bindings.Get(conn.ID()); bound {
		c.sendError(conn, http.StatusBadRequest, "Already in a classroom; leave it before joining another")
		return session.ErrAlreadyBound
	}

	l := c.lockRoom(roomID)
	l.mu.Lock()
	defer l.mu.Unlock()

	// Resolve the room's current state: live entry if present, otherwise
	// the persisted record (creating it for a teacher join).
	var active bool
	var status types.RoomStatus
	created := false

	snap, live := c.registry.Snapshot(roomID)
	if live {
		active, status = snap.Active, snap.Status
	} else {
		room, err := c.store.FindRoomByKey(ctx, roomID)
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			if role != types.RoleTeacher {
				c.sendError(conn, http.StatusNotFound,
					"This classroom does not exist. Only teachers can create new classrooms.")
				return interfaces.ErrRoomNotFound
			}
			room, err = c.store.CreateRoom(ctx, roomID)
			if err != nil {
				c.sendError(conn, http.StatusInternalServerError, "Failed to create classroom")
				return fmt.Errorf("failed to create classroom %s: %w", roomID, err)
			}
			created = true
		} else if err != nil {
			c.sendError(conn, http.StatusInternalServerError, "Failed to join room. Please try again.")
			return fmt.Errorf("failed to load classroom %s: %w", roomID, err)
		}
		active, status = room.Active, room.Status
	}

	// Denials happen before any registry mutation or seeding, so a rejected
	// join leaves no trace anywhere.
	if err := joinEligibility(status, role); err != nil {
		c.send(conn, types.ServerMessage{
			Type:    types.MessageTypeJoinDenied,
			Status:  http.StatusForbidden,
			Message: denialMessage(err),
			Data: map[string]interface{}{
				"roomId":   roomID,
				"isActive": active,
				"status":   status,
			},
		})
		return err
	}

	seeded := false
	if !live {
		c.registry.Seed(roomID, active, status)
		seeded = true
	}

	added := c.registry.AddMember(roomID, userID, role)
	if err := c.bindings.Bind(conn.ID(), session.Binding{RoomID: roomID, UserID: userID, Role: role}); err != nil {
		if added {
			c.registry.RemoveMember(roomID, userID, role)
		}
		c.sendError(conn, http.StatusBadRequest, "Already in a classroom; leave it before joining another")
		return err
	}

	event := c.newEvent(l, types.EventEnter, userID, role)
	if err := c.store.AppendEvent(ctx, roomID, event); err != nil {
		// Roll back every in-memory mutation so registry and store never
		// diverge. A live entry this join seeded is evicted again; there
		// was none before the attempt.
		c.bindings.Clear(conn.ID())
		if added {
			c.registry.RemoveMember(roomID, userID, role)
		}
		if seeded {
			c.registry.Evict(roomID)
		}
		c.sendError(conn, http.StatusInternalServerError, "Failed to join room. Please try again.")
		return fmt.Errorf("failed to persist ENTER event for %s: %w", roomID, err)
	}

	c.gateway.JoinRoomGroup(conn, roomID)

	snapshot, _ := c.registry.Snapshot(roomID)
	c.send(conn, types.ServerMessage{
		Type:    types.MessageTypeJoinSuccess,
		Status:  http.StatusOK,
		Message: fmt.Sprintf("Successfully joined classroom as %s", role),
		Data: map[string]interface{}{
			"roomId":   roomID,
			"role":     role,
			"isActive": snapshot.Active,
			"status":   snapshot.Status,
			"teachers": snapshot.Teachers,
			"students": snapshot.Students,
			"event":    event,
		},
	})

	c.broadcastSnapshot(roomID, snapshot)

	if created {
		c.send(conn, types.ServerMessage{
			Type:    types.MessageTypeClassroomCreated,
			Status:  http.StatusCreated,
			Message: "Classroom initialized successfully",
			Data: map[string]interface{}{
				"roomId":   roomID,
				"isActive": snapshot.Active,
				"status":   snapshot.Status,
			},
		})
	}

	log.Printf("%s %s joined room %s", role, userID, roomID)
	return nil
}

// Start applies the start-class transition. Only a connection bound as a
// teacher of the room may start it; success broadcasts class-started and the
// updated snapshot.
func (c *Coordinator) Start(ctx context.Context, conn interfaces.Connection, roomID string) error {
	binding, ok := c.bindings.Get(conn.ID())
	if !ok || binding.Role != types.RoleTeacher || binding.RoomID != roomID {
		c.sendError(conn, http.StatusForbidden, "Only teachers can start a class")
		return ErrTeachersOnly
	}

	l := c.lockRoom(roomID)
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, live := c.registry.Snapshot(roomID)
	if !live {
		c.sendError(conn, http.StatusNotFound, "Classroom not found")
		return interfaces.ErrRoomNotFound
	}

	if err := startTransition(snap.Status); err != nil {
		c.sendError(conn, http.StatusForbidden, err.Error())
		return err
	}

	event := c.newEvent(l, types.EventStartClass, "", "")
	if err := c.persistTransition(ctx, roomID, event, true, types.StatusOngoing, snap); err != nil {
		c.sendError(conn, http.StatusInternalServerError, "Failed to start class. Please try again.")
		return err
	}

	c.gateway.BroadcastToGroup(roomID, types.ServerMessage{
		Type:    types.MessageTypeClassStarted,
		Status:  http.StatusOK,
		Message: "Class has started",
		Data: map[string]interface{}{
			"startedBy": binding.UserID,
			"timestamp": event.Timestamp,
		},
	})

	snapshot, _ := c.registry.Snapshot(roomID)
	c.broadcastSnapshot(roomID, snapshot)

	log.Printf("Class started in room %s by %s", roomID, binding.UserID)
	return nil
}

// End applies the end-class transition and then evicts the room: every
// binding for the room is cleared and every connection leaves the multicast
// group. An ended room holds no live state.
func (c *Coordinator) End(ctx context.Context, conn interfaces.Connection, roomID string) error {
	binding, ok := c.bindings.Get(conn.ID())
	if !ok || binding.Role != types.RoleTeacher || binding.RoomID != roomID {
		c.sendError(conn, http.StatusForbidden, "Only teachers can end a class")
		return ErrTeachersOnly
	}

	l := c.lockRoom(roomID)
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, live := c.registry.Snapshot(roomID)
	if !live {
		c.sendError(conn, http.StatusNotFound, "Classroom not found")
		return interfaces.ErrRoomNotFound
	}

	if err := endTransition(snap.Status); err != nil {
		c.sendError(conn, http.StatusForbidden, err.Error())
		return err
	}

	event := c.newEvent(l, types.EventEndClass, "", "")
	if err := c.persistTransition(ctx, roomID, event, false, types.StatusEnded, snap); err != nil {
		c.sendError(conn, http.StatusInternalServerError, "Failed to end class. Please try again.")
		return err
	}

	c.gateway.BroadcastToGroup(roomID, types.ServerMessage{
		Type:    types.MessageTypeClassEnded,
		Status:  http.StatusOK,
		Message: "Class has ended",
		Data: map[string]interface{}{
			"endedBy":   binding.UserID,
			"timestamp": event.Timestamp,
		},
	})

	snapshot, _ := c.registry.Snapshot(roomID)
	c.broadcastSnapshot(roomID, snapshot)

	// Hard eviction: ended rooms hold no live connections.
	c.bindings.ClearRoom(roomID)
	c.gateway.EvictRoomGroup(roomID)
	c.registry.Evict(roomID)

	log.Printf("Class ended - %s by %s", roomID, binding.UserID)
	return nil
}

// Leave removes the connection's participant from their room, appends an
// EXIT event, acknowledges the leaver and broadcasts the updated snapshot to
// whoever remains.
func (c *Coordinator) Leave(ctx context.Context, conn interfaces.Connection) error {
	return c.depart(ctx, conn, true)
}

// Disconnect handles transport-detected connection loss. Identical to Leave
// except nothing is ever sent back to the gone connection.
func (c *Coordinator) Disconnect(ctx context.Context, conn interfaces.Connection) error {
	return c.depart(ctx, conn, false)
}

func (c *Coordinator) depart(ctx context.Context, conn interfaces.Connection, acknowledge bool) error {
	binding, ok := c.bindings.Get(conn.ID())
	if !ok {
		if acknowledge {
			c.sendError(conn, http.StatusBadRequest, "Not currently in a room")
		}
		return session.ErrNotBound
	}

	roomID := binding.RoomID
	l := c.lockRoom(roomID)
	l.mu.Lock()
	defer l.mu.Unlock()

	// End-class may have won the lock while this departure waited; its
	// eviction clears every binding for the room. A binding that vanished
	// under the lock means the room already ended and its log is closed.
	if _, still := c.bindings.Get(conn.ID()); !still {
		if acknowledge {
			c.sendError(conn, http.StatusBadRequest, "Not currently in a room")
		}
		return session.ErrNotBound
	}

	removed := c.registry.RemoveMember(roomID, binding.UserID, binding.Role)

	event := c.newEvent(l, types.EventExit, binding.UserID, binding.Role)
	if err := c.store.AppendEvent(ctx, roomID, event); err != nil {
		if removed {
			c.registry.AddMember(roomID, binding.UserID, binding.Role)
		}
		if acknowledge {
			c.sendError(conn, http.StatusInternalServerError, "Failed to leave room properly")
		}
		return fmt.Errorf("failed to persist EXIT event for %s: %w", roomID, err)
	}

	c.bindings.Clear(conn.ID())
	c.gateway.LeaveRoomGroup(conn, roomID)

	if acknowledge {
		c.send(conn, types.ServerMessage{
			Type:    types.MessageTypeLeaveSuccess,
			Status:  http.StatusOK,
			Message: "Successfully left the classroom",
		})
	}

	if c.registry.MemberCount(roomID) > 0 {
		snapshot, _ := c.registry.Snapshot(roomID)
		c.broadcastSnapshot(roomID, snapshot)
	} else {
		c.registry.Evict(roomID)
	}

	log.Printf("%s %s left room %s", binding.Role, binding.UserID, roomID)
	return nil
}

// persistTransition durably applies a lifecycle transition: status update
// plus the transition event. The registry mirror is updated first and rolled
// back, together with a compensating status write, if persistence fails
// partway.
func (c *Coordinator) persistTransition(ctx context.Context, roomID string, event *types.Event, active bool, status types.RoomStatus, prev types.Snapshot) error {
	c.registry.SetStatus(roomID, active, status)

	if err := c.store.UpdateStatus(ctx, roomID, active, status); err != nil {
		c.registry.SetStatus(roomID, prev.Active, prev.Status)
		return fmt.Errorf("failed to persist status for %s: %w", roomID, err)
	}

	if err := c.store.AppendEvent(ctx, roomID, event); err != nil {
		if revertErr := c.store.UpdateStatus(ctx, roomID, prev.Active, prev.Status); revertErr != nil {
			log.Printf("Failed to revert status for %s after append failure: %v", roomID, revertErr)
		}
		c.registry.SetStatus(roomID, prev.Active, prev.Status)
		return fmt.Errorf("failed to persist %s event for %s: %w", event.Kind, roomID, err)
	}

	return nil
}

// broadcastSnapshot delivers the room-update message carrying the current
// membership snapshot to every connection in the room.
func (c *Coordinator) broadcastSnapshot(roomID string, snapshot types.Snapshot) {
	c.gateway.BroadcastToGroup(roomID, types.ServerMessage{
		Type:    types.MessageTypeRoomUpdate,
		Status:  http.StatusOK,
		Message: "Room updated",
		Data:    snapshot,
	})
}

// send delivers a message to a single connection. Transport failures are
// logged and confined; they never fail the operation that produced them.
func (c *Coordinator) send(conn interfaces.Connection, msg types.ServerMessage) {
	if err := c.gateway.SendToConnection(conn, msg); err != nil {
		log.Printf("Failed to send %s to connection %s: %v", msg.Type, conn.ID(), err)
	}
}

func (c *Coordinator) sendError(conn interfaces.Connection, status int, message string) {
	c.send(conn, types.ServerMessage{
		Type:    types.MessageTypeError,
		Status:  status,
		Message: message,
	})
}

// denialMessage maps a join eligibility error to the client-facing denial
// text.
func denialMessage(err error) string {
	if errors.Is(err, ErrRoomClosed) {
		return "This class has already ended and cannot be joined."
	}
	return "Class has not started yet. Please wait for a teacher to start the class."
}
