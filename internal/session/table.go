package session

import (
	"sync"

	"classroom/pkg/types"
)

// Binding is the association of a live connection to a room, identity and
// role. It is set at successful join and cleared at leave, disconnect, or
// end-class eviction.
type Binding struct {
	RoomID string
	UserID string
	Role   types.Role
}

// Table tracks the binding of every connection, keyed by connection ID.
// A connection has at most one binding at a time; owner-only actions are
// authorized against the acting connection's binding, never against fields
// in the request payload.
type Table struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewTable creates an empty session binding table
func NewTable() *Table {
	return &Table{
		bindings: make(map[string]Binding),
	}
}

// Bind records a connection's binding. Fails with ErrAlreadyBound if the
// connection is currently bound; a client must leave before joining again.
func (t *Table) Bind(connID string, binding Binding) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.bindings[connID]; exists {
		return ErrAlreadyBound
	}
	t.bindings[connID] = binding
	return nil
}

// Get returns the binding for a connection, if any.
func (t *Table) Get(connID string) (Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	binding, exists := t.bindings[connID]
	return binding, exists
}

// Clear removes a connection's binding. Idempotent; the boolean reports
// whether a binding existed.
func (t *Table) Clear(connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.bindings[connID]
	delete(t.bindings, connID)
	return exists
}

// ClearRoom removes every binding for a room and returns the cleared
// connection IDs. Used by end-class eviction: ended rooms hold no bound
// connections.
func (t *Table) ClearRoom(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var cleared []string
	for connID, binding := range t.bindings {
		if binding.RoomID == roomID {
			delete(t.bindings, connID)
			cleared = append(cleared, connID)
		}
	}
	return cleared
}

// Count returns the number of currently bound connections.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.bindings)
}
