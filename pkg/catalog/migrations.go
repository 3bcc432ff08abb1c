package catalog

import (
	"database/sql"
	"fmt"
)

// migration is a single schema change, applied at most once.
type migration struct {
	version int
	name    string
	up      string
}

// migrations is the ordered list of catalog schema changes.
var migrations = []migration{
	{
		version: 1,
		name:    "create_packages_table",
		up: `
			CREATE TABLE IF NOT EXISTS packages (
				slug TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				path TEXT NOT NULL,
				digest TEXT NOT NULL,
				entries INTEGER NOT NULL,
				size_bytes INTEGER NOT NULL,
				published_at INTEGER NOT NULL,
				built_at INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_packages_published_at
			ON packages(published_at DESC);
		`,
	},
	{
		version: 2,
		name:    "add_signature_columns",
		up: `
			ALTER TABLE packages ADD COLUMN signature_path TEXT NOT NULL DEFAULT '';
			ALTER TABLE packages ADD COLUMN algorithm TEXT NOT NULL DEFAULT '';
			ALTER TABLE packages ADD COLUMN key_id TEXT NOT NULL DEFAULT '';
			ALTER TABLE packages ADD COLUMN signed_digest TEXT NOT NULL DEFAULT '';
			ALTER TABLE packages ADD COLUMN signed_at INTEGER NOT NULL DEFAULT 0;
		`,
	},
}

// runMigrations applies every migration newer than the recorded schema
// version, each in its own transaction.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	currentVersion := 0
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.up); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

// schemaVersion returns the highest applied migration version.
func schemaVersion(db *sql.DB) (int, error) {
	var v int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}
