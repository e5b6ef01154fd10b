package websocket

import (
	"log"
	"sync"

	"classroom/pkg/interfaces"
)

// Gateway implements the interfaces.Gateway room-multicast primitive over
// live WebSocket connections. Pure connection grouping without business
// logic; the coordinator decides what gets sent where.
type Gateway struct {
	mu     sync.RWMutex
	groups map[string]map[string]interfaces.Connection // roomID -> connID -> conn
}

// NewGateway creates an empty broadcast gateway
func NewGateway() *Gateway {
	return &Gateway{
		groups: make(map[string]map[string]interfaces.Connection),
	}
}

// JoinRoomGroup adds a connection to a room's multicast group.
func (g *Gateway) JoinRoomGroup(conn interfaces.Connection, roomID string) {
	if conn == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.groups[roomID] == nil {
		g.groups[roomID] = make(map[string]interfaces.Connection)
	}
	g.groups[roomID][conn.ID()] = conn
}

// LeaveRoomGroup removes a connection from a room's multicast group.
// Idempotent; empty groups are dropped to keep the map from leaking.
func (g *Gateway) LeaveRoomGroup(conn interfaces.Connection, roomID string) {
	if conn == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if group, exists := g.groups[roomID]; exists {
		delete(group, conn.ID())
		if len(group) == 0 {
			delete(g.groups, roomID)
		}
	}
}

// SendToConnection delivers a message to a single connection.
func (g *Gateway) SendToConnection(conn interfaces.Connection, v interface{}) error {
	if conn == nil {
		return ErrConnectionClosed
	}
	return conn.WriteJSON(v)
}

// BroadcastToGroup delivers a message to every connection in a room's group.
// Delivery failures to individual connections are logged and never abort the
// broadcast or block other recipients.
func (g *Gateway) BroadcastToGroup(roomID string, v interface{}) {
	g.mu.RLock()
	conns := make([]interfaces.Connection, 0, len(g.groups[roomID]))
	for _, conn := range g.groups[roomID] {
		conns = append(conns, conn)
	}
	g.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(v); err != nil {
			log.Printf("Failed to deliver broadcast to connection %s in room %s: %v", conn.ID(), roomID, err)
		}
	}
}

// EvictRoomGroup removes every connection from a room's group and returns
// the evicted connections.
func (g *Gateway) EvictRoomGroup(roomID string) []interfaces.Connection {
	g.mu.Lock()
	defer g.mu.Unlock()

	group, exists := g.groups[roomID]
	if !exists {
		return nil
	}

	evicted := make([]interfaces.Connection, 0, len(group))
	for _, conn := range group {
		evicted = append(evicted, conn)
	}
	delete(g.groups, roomID)

	return evicted
}

// Stats returns gateway statistics for monitoring and the health endpoint.
func (g *Gateway) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	connections := 0
	for _, group := range g.groups {
		connections += len(group)
	}

	return map[string]int{
		"room_groups":         len(g.groups),
		"grouped_connections": connections,
	}
}
