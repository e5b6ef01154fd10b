package store

import (
	"database/sql"
	"fmt"
)

// Migration is a single versioned schema change applied in a transaction.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// migrations holds the full schema history in application order. Migrations
// are compiled in rather than loaded from disk so a deployed binary can never
// disagree with its schema.
var migrations = []Migration{
	{
		Version:     "001",
		Description: "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS classrooms (
				room_id    TEXT PRIMARY KEY,
				is_active  INTEGER NOT NULL DEFAULT 0,
				status     TEXT NOT NULL DEFAULT 'NOT_STARTED'
					CHECK (status IN ('NOT_STARTED', 'ONGOING', 'ENDED')),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE TABLE IF NOT EXISTS classroom_events (
				seq       INTEGER PRIMARY KEY AUTOINCREMENT,
				id        TEXT NOT NULL,
				room_id   TEXT NOT NULL REFERENCES classrooms(room_id),
				kind      TEXT NOT NULL
					CHECK (kind IN ('ENTER', 'EXIT', 'START_CLASS', 'END_CLASS')),
				user_id   TEXT,
				role      TEXT CHECK (role IN ('TEACHER', 'STUDENT') OR role IS NULL),
				timestamp DATETIME NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_classrooms_status ON classrooms(status);
			CREATE INDEX IF NOT EXISTS idx_events_room_seq ON classroom_events(room_id, seq);
			CREATE INDEX IF NOT EXISTS idx_events_room_kind ON classroom_events(room_id, kind);
		`,
	},
}

// MigrationManager applies pending migrations and tracks schema version state
// across restarts.
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a migration manager for the given database.
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// ApplyMigrations applies all pending migrations in version order. Each
// migration runs in its own transaction together with its version record, so
// a failed migration leaves no partial schema behind.
func (m *MigrationManager) ApplyMigrations() error {
	if err := m.createMigrationTable(); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	applied, err := m.appliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := m.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %s (%s): %w",
				migration.Version, migration.Description, err)
		}
	}

	return nil
}

func (m *MigrationManager) createMigrationTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (m *MigrationManager) appliedMigrations() (map[string]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func (m *MigrationManager) applyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec(migration.SQL); err != nil {
		return err
	}

	if _, err = tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
		return err
	}

	return tx.Commit()
}
