// Package sqlite implements the dedup.KVStore port on a local SQLite file.
// It is the default backend for single-instance deployments and local review
// mode, where a network cache would be overkill.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements dedup.KVStore using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates the kv table if it doesn't exist.
func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_kv_expires ON kv(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get implements dedup.KVStore. Expired rows read as absent; they are
// reaped lazily on the next Set.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM kv WHERE key = ? AND expires_at > ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, key, s.now().Unix()).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key: %w", err)
	}

	return value, true, nil
}

// Set implements dedup.KVStore, upserting the key with a fresh deadline.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	nowUnix := s.now().Unix()

	// Opportunistic reaping keeps the file from growing without a vacuum job.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_at <= ?`, nowUnix); err != nil {
		return fmt.Errorf("failed to reap expired keys: %w", err)
	}

	query := `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`

	deadline := nowUnix + int64(ttl/time.Second)
	if _, err := s.db.ExecContext(ctx, query, key, value, deadline); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}

	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
