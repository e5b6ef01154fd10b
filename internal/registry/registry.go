package registry

import (
	"sync"

	"classroom/pkg/types"
)

// liveRoom is the in-memory view of one classroom: who is present, plus a
// mirror of the persisted active/status pair. Member slices preserve join
// order and never hold duplicates.
type liveRoom struct {
	teachers []string
	students []string
	active   bool
	status   types.RoomStatus
}

// Registry holds the live membership of every room with current activity.
// It is a derived cache over the persisted room records: entries are seeded
// lazily on first activity and can always be rebuilt from the store.
//
// The registry's own RWMutex only protects map/slice integrity. Operation
// atomicity for a room (read-validate-mutate-persist as one unit) is the
// coordinator's per-room lock; cross-room operations never contend there.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*liveRoom
}

// NewRegistry creates an empty room registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*liveRoom),
	}
}

// Seed creates the live entry for a room from its persisted state. Existing
// entries are left untouched so a racing seed cannot drop members.
func (r *Registry) Seed(roomID string, active bool, status types.RoomStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return
	}
	r.rooms[roomID] = &liveRoom{
		active: active,
		status: status,
	}
}

// Has reports whether a room has a live entry.
func (r *Registry) Has(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.rooms[roomID]
	return exists
}

// AddMember inserts a participant into the room's matching set. Idempotent:
// adding a present member is a no-op. The boolean reports whether the member
// was newly added, which the coordinator uses to roll back on persistence
// failure. Returns false if the room has no live entry.
func (r *Registry) AddMember(roomID, userID string, role types.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return false
	}

	switch role {
	case types.RoleTeacher:
		if contains(room.teachers, userID) {
			return false
		}
		room.teachers = append(room.teachers, userID)
	case types.RoleStudent:
		if contains(room.students, userID) {
			return false
		}
		room.students = append(room.students, userID)
	default:
		return false
	}

	return true
}

// RemoveMember removes a participant from the room's matching set.
// Idempotent: removing an absent member is a no-op. The boolean reports
// whether a member was actually removed.
func (r *Registry) RemoveMember(roomID, userID string, role types.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return false
	}

	switch role {
	case types.RoleTeacher:
		room.teachers, exists = remove(room.teachers, userID)
	case types.RoleStudent:
		room.students, exists = remove(room.students, userID)
	default:
		return false
	}

	return exists
}

// SetStatus updates the cached lifecycle mirror for a room.
func (r *Registry) SetStatus(roomID string, active bool, status types.RoomStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, exists := r.rooms[roomID]; exists {
		room.active = active
		room.status = status
	}
}

// Snapshot returns an immutable copy of the room's membership and status.
// The second return is false when the room has no live entry.
func (r *Registry) Snapshot(roomID string) (types.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return types.Snapshot{}, false
	}

	return types.Snapshot{
		RoomID:   roomID,
		Teachers: append([]string{}, room.teachers...),
		Students: append([]string{}, room.students...),
		Active:   room.active,
		Status:   room.status,
	}, true
}

// MemberCount returns the number of participants currently in the room.
func (r *Registry) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return 0
	}
	return len(room.teachers) + len(room.students)
}

// Evict drops the live entry for a room. The persisted record is untouched;
// the entry is rebuilt from the store on the next activity.
func (r *Registry) Evict(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, roomID)
}

// Stats returns registry statistics for monitoring and the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participants := 0
	for _, room := range r.rooms {
		participants += len(room.teachers) + len(room.students)
	}

	return map[string]int{
		"live_rooms":   len(r.rooms),
		"participants": participants,
	}
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) ([]string, bool) {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...), true
		}
	}
	return ids, false
}
