package coordinator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"classroom/pkg/interfaces"
	"classroom/pkg/types"
)

// fakeStore is an in-memory RoomStore with switchable failure injection for
// rollback tests.
type fakeStore struct {
	mu     sync.Mutex
	rooms  map[string]*types.Room
	events map[string][]*types.Event

	failAppend bool
	failUpdate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:  make(map[string]*types.Room),
		events: make(map[string][]*types.Event),
	}
}

var errInjected = errors.New("injected store failure")

func (s *fakeStore) FindRoomByKey(ctx context.Context, roomID string) (*types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, exists := s.rooms[roomID]
	if !exists {
		return nil, interfaces.ErrRoomNotFound
	}
	copy := *room
	return &copy, nil
}

func (s *fakeStore) CreateRoom(ctx context.Context, roomID string) (*types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[roomID]; exists {
		return nil, interfaces.ErrRoomExists
	}
	now := time.Now().UTC()
	room := &types.Room{
		RoomID:    roomID,
		Active:    false,
		Status:    types.StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.rooms[roomID] = room
	copy := *room
	return &copy, nil
}

func (s *fakeStore) AppendEvent(ctx context.Context, roomID string, event *types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAppend {
		return errInjected
	}
	if _, exists := s.rooms[roomID]; !exists {
		return interfaces.ErrRoomNotFound
	}
	copy := *event
	s.events[roomID] = append(s.events[roomID], &copy)
	return nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, roomID string, active bool, status types.RoomStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdate {
		return errInjected
	}
	room, exists := s.rooms[roomID]
	if !exists {
		return interfaces.ErrRoomNotFound
	}
	room.Active = active
	room.Status = status
	room.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) ListRooms(ctx context.Context) ([]*types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]*types.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		copy := *room
		rooms = append(rooms, &copy)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	return rooms, nil
}

func (s *fakeStore) RoomEvents(ctx context.Context, roomID string) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*types.Event, 0, len(s.events[roomID]))
	for _, event := range s.events[roomID] {
		copy := *event
		events = append(events, &copy)
	}
	return events, nil
}

func (s *fakeStore) HealthCheck(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                          { return nil }

func (s *fakeStore) setFailAppend(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppend = fail
}

func (s *fakeStore) room(roomID string) *types.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, exists := s.rooms[roomID]
	if !exists {
		return nil
	}
	copy := *room
	return &copy
}

func (s *fakeStore) eventKinds(roomID string) []types.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]types.EventKind, 0, len(s.events[roomID]))
	for _, event := range s.events[roomID] {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

// fakeConn records everything written to it.
type fakeConn struct {
	id string

	mu       sync.Mutex
	messages []types.ServerMessage
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) WriteJSON(v interface{}) error {
	msg, ok := v.(types.ServerMessage)
	if !ok {
		return errors.New("unexpected message type")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) received(msgType string) []types.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []types.ServerMessage
	for _, msg := range c.messages {
		if msg.Type == msgType {
			matched = append(matched, msg)
		}
	}
	return matched
}

func (c *fakeConn) lastMessage() (types.ServerMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return types.ServerMessage{}, false
	}
	return c.messages[len(c.messages)-1], true
}

func (c *fakeConn) messageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// fakeGateway implements interfaces.Gateway over fakeConn groups.
type fakeGateway struct {
	mu     sync.Mutex
	groups map[string]map[string]interfaces.Connection
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{groups: make(map[string]map[string]interfaces.Connection)}
}

func (g *fakeGateway) JoinRoomGroup(conn interfaces.Connection, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.groups[roomID] == nil {
		g.groups[roomID] = make(map[string]interfaces.Connection)
	}
	g.groups[roomID][conn.ID()] = conn
}

func (g *fakeGateway) LeaveRoomGroup(conn interfaces.Connection, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if group, exists := g.groups[roomID]; exists {
		delete(group, conn.ID())
		if len(group) == 0 {
			delete(g.groups, roomID)
		}
	}
}

func (g *fakeGateway) SendToConnection(conn interfaces.Connection, v interface{}) error {
	return conn.WriteJSON(v)
}

func (g *fakeGateway) BroadcastToGroup(roomID string, v interface{}) {
	g.mu.Lock()
	conns := make([]interfaces.Connection, 0, len(g.groups[roomID]))
	for _, conn := range g.groups[roomID] {
		conns = append(conns, conn)
	}
	g.mu.Unlock()

	for _, conn := range conns {
		_ = conn.WriteJSON(v)
	}
}

func (g *fakeGateway) EvictRoomGroup(roomID string) []interfaces.Connection {
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

// hookedGateway runs a callback on every broadcast, for interleaving tests
// that need to act while the coordinator holds a room lock.
type hookedGateway struct {
	*fakeGateway
	onBroadcast func(roomID string, v interface{})
}

func (g *hookedGateway) BroadcastToGroup(roomID string, v interface{}) {
	if g.onBroadcast != nil {
		g.onBroadcast(roomID, v)
	}
	g.fakeGateway.BroadcastToGroup(roomID, v)
}

func (g *fakeGateway) groupSize(roomID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.groups[roomID])
}
