package interfaces

// Connection represents a live client connection. Implementations must make
// WriteJSON safe for concurrent use; the coordinator writes to connections
// while holding per-room locks and must never block on a slow client.
type Connection interface {
	// ID returns the server-assigned connection identifier. It is the key of
	// the session binding table and stays stable for the connection lifetime.
	ID() string

	// WriteJSON sends a JSON message to the client (thread-safe, best effort).
	WriteJSON(v interface{}) error

	// Close closes the connection and releases its resources.
	Close() error
}
