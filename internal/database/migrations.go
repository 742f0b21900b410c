package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered schema history. Timestamps are stored as unix
// seconds (UTC) so range comparisons stay plain integer comparisons.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "core_tables",
		SQL: `
CREATE TABLE IF NOT EXISTS track_points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	client_point_id TEXT NOT NULL,
	recorded_at INTEGER NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	gcj02_latitude REAL,
	gcj02_longitude REAL,
	altitude REAL,
	accuracy REAL,
	speed REAL,
	step_count INTEGER,
	step_delta INTEGER,
	activity_type INTEGER,
	is_dirty INTEGER NOT NULL DEFAULT 0,
	weather_snapshot TEXT,
	geom_hash TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, client_point_id)
);
CREATE INDEX IF NOT EXISTS ix_track_points_user_recorded_at
	ON track_points (user_id, recorded_at);

CREATE TABLE IF NOT EXISTS track_edits (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	start_at INTEGER NOT NULL,
	end_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	canceled_at INTEGER,
	note TEXT
);
CREATE INDEX IF NOT EXISTS ix_track_edits_user_time
	ON track_edits (user_id, start_at, end_at);
CREATE INDEX IF NOT EXISTS ix_track_edits_user_created
	ON track_edits (user_id, created_at);

CREATE TABLE IF NOT EXISTS life_events (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	start_at INTEGER NOT NULL,
	end_at INTEGER NOT NULL,
	location_name TEXT,
	manual_note TEXT,
	latitude REAL,
	longitude REAL,
	gcj02_latitude REAL,
	gcj02_longitude REAL,
	payload_json TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_life_events_user_time
	ON life_events (user_id, start_at, end_at);

CREATE TABLE IF NOT EXISTS export_jobs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	state TEXT NOT NULL,
	format TEXT NOT NULL,
	include_weather INTEGER NOT NULL DEFAULT 0,
	start_at INTEGER NOT NULL,
	end_at INTEGER NOT NULL,
	timezone TEXT NOT NULL,
	artifact_path TEXT,
	error_code TEXT,
	error_message TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS ix_export_jobs_user_state
	ON export_jobs (user_id, state);
CREATE INDEX IF NOT EXISTS ix_export_jobs_user_created
	ON export_jobs (user_id, created_at);

CREATE TABLE IF NOT EXISTS weather_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	geohash5 TEXT NOT NULL,
	hour_time INTEGER NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (geohash5, hour_time)
);
`,
	},
}

// MigrationManager applies pending schema migrations
type MigrationManager struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB, logger *zap.Logger) *MigrationManager {
	return &MigrationManager{db: db, logger: logger}
}

// InitMigrationsTable creates the migrations tracking table
func (m *MigrationManager) InitMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns the set of applied migration versions
func (m *MigrationManager) GetAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, nil
}

// ApplyMigration applies a single migration inside one transaction
func (m *MigrationManager) ApplyMigration(migration Migration) error {
	return Transaction(m.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(migration.SQL); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		return nil
	})
}

// RunMigrations runs all pending migrations
func (m *MigrationManager) RunMigrations() error {
	if err := m.InitMigrationsTable(); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := m.ApplyMigration(migration); err != nil {
			return err
		}
		m.logger.Info("applied migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))
	}

	return nil
}
