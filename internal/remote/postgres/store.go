// Package postgres stores each user's records in one Postgres table,
// keyed by (owner_id, id), with the flat record JSON in a JSONB column.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"brdwizard/internal/logging"
	"brdwizard/internal/records"
)

var _ records.Remote = (*Store)(nil)

const driverName = "pgx"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const ddl = `CREATE TABLE IF NOT EXISTS brd_records (
	owner_id TEXT NOT NULL,
	id TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at BIGINT NOT NULL,
	last_updated BIGINT NOT NULL,
	PRIMARY KEY (owner_id, id)
)`

const indexDDL = `CREATE INDEX IF NOT EXISTS brd_records_owner_updated
	ON brd_records (owner_id, last_updated DESC)`

// Store is a records.Remote on Postgres.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, verifies the connection and ensures the table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn required")
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and ensures the table exists.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range []string{ddl, indexDDL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("ensure records table: %w", err)
		}
	}
	logging.Sync("Postgres remote ready")
	return &Store{db: db}, nil
}

// List returns the owner's records ordered by last_updated descending.
func (s *Store) List(ctx context.Context, ownerID string) ([]records.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, created_at, last_updated FROM brd_records WHERE owner_id = $1 ORDER BY last_updated DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []records.Record{}
	for rows.Next() {
		var (
			id          string
			payload     []byte
			createdAt   int64
			lastUpdated int64
		)
		if err := rows.Scan(&id, &payload, &createdAt, &lastUpdated); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec records.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", id, err)
		}
		// Columns are authoritative over the payload copy.
		rec.ID = id
		rec.OwnerID = ownerID
		rec.CreatedAt = createdAt
		rec.LastUpdated = lastUpdated
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces the record with the same (owner, id).
func (s *Store) Upsert(ctx context.Context, ownerID string, rec records.Record) error {
	if rec.ID == "" {
		return errors.New("record id required")
	}
	rec.OwnerID = ownerID
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO brd_records (owner_id, id, payload, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			last_updated = EXCLUDED.last_updated`,
		ownerID, rec.ID, string(payload), rec.CreatedAt, rec.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes the owner's record with id. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM brd_records WHERE owner_id = $1 AND id = $2`, ownerID, id); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sql.Open hook and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
