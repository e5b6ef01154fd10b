package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"classroom/pkg/interfaces"
	"classroom/pkg/types"
)

// Manager implements the interfaces.RoomStore interface on SQLite. All writes
// funnel through a single goroutine; reads run concurrently against the pool.
type Manager struct {
	db           *sql.DB
	config       *Config
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex // protects closed
}

// writeOperation is one queued database write
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the database, applies migrations and starts the writer
// goroutine.
func NewManager(config *Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := applySQLiteOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}

	if err := NewMigrationManager(db).ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	manager := &Manager{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine. SQLite
// allows one writer at a time; serializing here avoids lock contention
// entirely.
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			op.result <- op.operation(m.db)
		case <-m.shutdown:
			log.Println("Store write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion
func (m *Manager) executeWrite(operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrStoreClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return ErrWriteTimeout
	case <-m.shutdown:
		return ErrStoreClosed
	}
}

// FindRoomByKey retrieves a room by its identifier.
func (m *Manager) FindRoomByKey(ctx context.Context, roomID string) (*types.Room, error) {
	query := `
		SELECT room_id, is_active, status, created_at, updated_at
		FROM classrooms
		WHERE room_id = ?
	`

	var room types.Room
	err := m.db.QueryRowContext(ctx, query, roomID).Scan(
		&room.RoomID,
		&room.Active,
		&room.Status,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to query classroom: %w", err)
	}

	return &room, nil
}

// CreateRoom inserts a room in its initial state (NOT_STARTED, inactive).
func (m *Manager) CreateRoom(ctx context.Context, roomID string) (*types.Room, error) {
	now := time.Now().UTC()
	room := &types.Room{
		RoomID:    roomID,
		Active:    false,
		Status:    types.StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := m.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT INTO classrooms (room_id, is_active, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			room.RoomID,
			room.Active,
			string(room.Status),
			room.CreatedAt,
			room.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return interfaces.ErrRoomExists
			}
			return fmt.Errorf("failed to insert classroom: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return room, nil
}

// AppendEvent durably appends an event to a room's log. The AUTOINCREMENT
// seq column is the durable ordering source; timestamps are stored as given.
func (m *Manager) AppendEvent(ctx context.Context, roomID string, event *types.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	return m.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT INTO classroom_events (id, room_id, kind, user_id, role, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`

		var userID, role interface{}
		if event.UserID != "" {
			userID = event.UserID
		}
		if event.Role != "" {
			role = string(event.Role)
		}

		_, err := db.ExecContext(ctx, query,
			event.ID,
			roomID,
			string(event.Kind),
			userID,
			role,
			event.Timestamp,
		)
		if err != nil {
			// The room_id foreign key rejects appends to rooms that were
			// never created.
			if isForeignKeyViolation(err) {
				return interfaces.ErrRoomNotFound
			}
			return fmt.Errorf("failed to insert event: %w", err)
		}

		return nil
	})
}

// UpdateStatus atomically updates a room's active flag and lifecycle status.
func (m *Manager) UpdateStatus(ctx context.Context, roomID string, active bool, status types.RoomStatus) error {
	return m.executeWrite(func(db *sql.DB) error {
		query := `
			UPDATE classrooms
			SET is_active = ?, status = ?, updated_at = ?
			WHERE room_id = ?
		`
		result, err := db.ExecContext(ctx, query, active, string(status), time.Now().UTC(), roomID)
		if err != nil {
			return fmt.Errorf("failed to update classroom status: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check status update: %w", err)
		}
		if rows == 0 {
			return interfaces.ErrRoomNotFound
		}

		return nil
	})
}

// ListRooms returns all rooms, newest first.
func (m *Manager) ListRooms(ctx context.Context) ([]*types.Room, error) {
	query := `
		SELECT room_id, is_active, status, created_at, updated_at
		FROM classrooms
		ORDER BY created_at DESC
	`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query classrooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rooms []*types.Room
	for rows.Next() {
		var room types.Room
		err := rows.Scan(
			&room.RoomID,
			&room.Active,
			&room.Status,
			&room.CreatedAt,
			&room.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classroom row: %w", err)
		}
		rooms = append(rooms, &room)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classroom rows: %w", err)
	}

	return rooms, nil
}

// RoomEvents returns a room's full event log in append order.
func (m *Manager) RoomEvents(ctx context.Context, roomID string) ([]*types.Event, error) {
	query := `
		SELECT id, kind, user_id, role, timestamp
		FROM classroom_events
		WHERE room_id = ?
		ORDER BY seq ASC
	`

	rows, err := m.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*types.Event
	for rows.Next() {
		var event types.Event
		var userID, role sql.NullString

		err := rows.Scan(
			&event.ID,
			&event.Kind,
			&userID,
			&role,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		if userID.Valid {
			event.UserID = userID.String
		}
		if role.Valid {
			event.Role = types.Role(role.String)
		}

		events = append(events, &event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

// HealthCheck validates database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := m.db.QueryContext(ctx, "SELECT COUNT(*) FROM classrooms LIMIT 1"); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}

	return nil
}

// GetDB returns the underlying database connection
func (m *Manager) GetDB() *sql.DB {
	return m.db
}

// Close shuts down the writer goroutine and the database connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isForeignKeyViolation reports whether err is a SQLite foreign key failure
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// applySQLiteOptimizations applies performance pragmas for classroom scale
func applySQLiteOptimizations(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	return nil
}
