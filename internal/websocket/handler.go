package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"classroom/pkg/interfaces"
	"classroom/pkg/types"
)

// WebSocket upgrader with production-ready settings
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development; deployments should restrict this
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// RoomCoordinator is the subset of coordinator operations the handler
// dispatches inbound messages to.
type RoomCoordinator interface {
	Join(ctx context.Context, conn interfaces.Connection, roomID, userID string, role types.Role) error
	Start(ctx context.Context, conn interfaces.Connection, roomID string) error
	End(ctx context.Context, conn interfaces.Connection, roomID string) error
	Leave(ctx context.Context, conn interfaces.Connection) error
	Disconnect(ctx context.Context, conn interfaces.Connection) error
}

// Handler upgrades HTTP requests to WebSocket connections and dispatches the
// inbound message stream to the coordinator. All room semantics live behind
// the RoomCoordinator interface; the handler only owns transport concerns.
type Handler struct {
	coordinator RoomCoordinator
	limiter     *RateLimiter
}

// NewHandler creates a WebSocket handler with its dependencies injected.
func NewHandler(coordinator RoomCoordinator) *Handler {
	return &Handler{
		coordinator: coordinator,
		limiter:     NewRateLimiter(),
	}
}

// HandleWebSocket handles WebSocket connection requests. Joining happens via
// the join-room message after the upgrade, not via query parameters, so an
// idle connection holds no room state at all.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn)
	log.Printf("New client connected: %s", wsConn.ID())

	go h.handleConnection(wsConn)
}

// handleConnection runs the read loop and heartbeat for one connection and
// guarantees disconnect cleanup runs exactly once when the loop exits.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		// Cleanup is processed as its own serialized operation; an
		// operation already in flight for this connection completes first.
		if err := h.coordinator.Disconnect(context.Background(), conn); err != nil {
			log.Printf("Disconnect cleanup for %s: %v", conn.ID(), err)
		}
		h.limiter.Forget(conn.ID())
		_ = conn.Close()
	}()

	// 60-second read deadline refreshed by pongs; 30-second ping interval.
	if err := conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on %s: %v", conn.ID(), err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		h.dispatch(conn, data)
	}
}

// dispatch parses one inbound envelope and routes it to the coordinator.
// Coordinator errors are already reported to the client as wire messages;
// here they are only logged.
func (h *Handler) dispatch(conn *Connection, data []byte) {
	if !h.limiter.Allow(conn.ID()) {
		h.sendError(conn, http.StatusTooManyRequests, "Too many messages, slow down")
		return
	}

	var msg types.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(conn, http.StatusBadRequest, "Invalid message format")
		return
	}

	ctx := context.Background()

	var err error
	switch msg.Type {
	case types.MessageTypeJoinRoom:
		err = h.coordinator.Join(ctx, conn, msg.RoomID, msg.UserID, msg.Role)
	case types.MessageTypeStartClass:
		err = h.coordinator.Start(ctx, conn, msg.RoomID)
	case types.MessageTypeEndClass:
		err = h.coordinator.End(ctx, conn, msg.RoomID)
	case types.MessageTypeLeaveRoom:
		err = h.coordinator.Leave(ctx, conn)
	default:
		h.sendError(conn, http.StatusBadRequest, "Unknown message type")
		return
	}

	if err != nil {
		log.Printf("%s from connection %s rejected: %v", msg.Type, conn.ID(), err)
	}
}

func (h *Handler) sendError(conn *Connection, status int, message string) {
	errMsg := types.ServerMessage{
		Type:    types.MessageTypeError,
		Status:  status,
		Message: message,
	}
	if err := conn.WriteJSON(errMsg); err != nil {
		log.Printf("Failed to send error message to %s: %v", conn.ID(), err)
	}
}
