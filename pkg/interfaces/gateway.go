package interfaces

// Gateway is the room-multicast primitive of the connection transport.
// Delivery is best effort while connected; failures to individual
// connections are logged by implementations and never abort a broadcast.
type Gateway interface {
	// JoinRoomGroup adds a connection to a room's multicast group.
	JoinRoomGroup(conn Connection, roomID string)

	// LeaveRoomGroup removes a connection from a room's multicast group.
	// Idempotent; unknown connections are ignored.
	LeaveRoomGroup(conn Connection, roomID string)

	// SendToConnection delivers a message to a single connection.
	SendToConnection(conn Connection, v interface{}) error

	// BroadcastToGroup delivers a message to every connection currently in
	// the room's group.
	BroadcastToGroup(roomID string, v interface{})

	// EvictRoomGroup removes every connection from the room's group and
	// returns the evicted connections. Used by end-class: ended rooms hold
	// no live connections.
	EvictRoomGroup(roomID string) []Connection
}
