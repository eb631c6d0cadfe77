package store

import (
	"database/sql"
	"fmt"

	"brdwizard/internal/logging"
)

// Schema versions:
// v1: kv table (key, value)
// v2: updated_at column on kv
const CurrentSchemaVersion = 2

// migration upgrades the database from version-1 to version.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{1, []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}},
	{2, []string{
		`ALTER TABLE kv ADD COLUMN updated_at INTEGER NOT NULL DEFAULT 0`,
	}},
}

// RunMigrations brings db up to CurrentSchemaVersion, tracked in PRAGMA user_version.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration v%d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration v%d failed: %w", m.version, err)
			}
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record schema v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration v%d: %w", m.version, err)
		}
		applied++
		logging.StoreDebug("Applied schema migration v%d", m.version)
	}

	if applied > 0 {
		logging.Store("Schema migrated from v%d to v%d", current, CurrentSchemaVersion)
	}
	return nil
}

// SchemaVersion reads PRAGMA user_version.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
