package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is one forward-only schema step
type migration struct {
	Version     int
	Description string
	Statements  []string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "users, sessions, cameras and alerts",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				token_hash TEXT PRIMARY KEY,
				user_id INTEGER NOT NULL,
				created_at TIMESTAMP NOT NULL,
				expires_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS cameras (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				cam_id TEXT NOT NULL,
				fire_detection BOOLEAN NOT NULL DEFAULT 0,
				pose_alert BOOLEAN NOT NULL DEFAULT 0,
				restricted_zone BOOLEAN NOT NULL DEFAULT 0,
				safety_gear_detection BOOLEAN NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE (user_id, cam_id),
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS alerts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				camera_id INTEGER,
				date_time TIMESTAMP NOT NULL,
				alert_type TEXT NOT NULL,
				frame_snapshot BLOB,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (camera_id) REFERENCES cameras(id) ON DELETE SET NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
			`CREATE INDEX IF NOT EXISTS idx_alerts_user_type_time ON alerts(user_id, alert_type, date_time)`,
			`CREATE INDEX IF NOT EXISTS idx_alerts_time ON alerts(date_time)`,
		},
	},
	{
		Version:     2,
		Description: "camera region label, stored for the dashboard only",
		Statements: []string{
			`ALTER TABLE cameras ADD COLUMN region TEXT NOT NULL DEFAULT ''`,
		},
	},
}

// migrator applies pending migrations and records them in schema_migrations
type migrator struct {
	db         *sql.DB
	migrations []migration
}

func newMigrator(db *sql.DB) *migrator {
	return &migrator{db: db, migrations: migrations}
}

func (m *migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`)
	return err
}

// CurrentVersion returns the highest applied migration, or 0
func (m *migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	var version sql.NullInt64
	if err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// Up applies every migration newer than the current version, each in its
// own transaction
func (m *migrator) Up(ctx context.Context) error {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrator) apply(ctx context.Context, mig migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range mig.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
		mig.Version, mig.Description, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", mig.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", mig.Version, err)
	}
	return nil
}
