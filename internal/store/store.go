package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/anchorgo/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// migrations[i] moves a registry from user_version i to i+1. Append only.
var migrations = []string{
	// Match scans by payload prefix; the index serves exact lookups from
	// Discriminators.
	`CREATE INDEX IF NOT EXISTS idx_discriminators_hex ON discriminators(hex)`,
}

// ErrNotFound is returned when a program or run is not in the registry.
var ErrNotFound = errors.New("not found")

// Store is the SQLite registry of compiled programs and generation runs.
// It holds a single connection, so writes are serialized.
type Store struct {
	db    *sql.DB
	log   logging.Logger
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for registry writes.
func WithLogger(log logging.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithIDGenerator sets the source of run IDs. IDs must be UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Open creates or opens the registry at path and brings its schema up to
// date. Opening the same file again is safe.
//
// Connections run in WAL mode with NORMAL sync, a 5s busy timeout and
// foreign keys enforced.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to registry: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, log: logging.Discard(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	s.log.With("path", path).Debug("opened registry")
	return s, nil
}

// dsn appends the connection pragmas go-sqlite3 applies on every connect.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	return path + "?" + params.Encode()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate creates missing tables, then applies each migration past the
// recorded user_version in its own transaction.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for v := version; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set user_version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}

// schemaVersion reports the applied migration count.
func (s *Store) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

// nextSeq returns the next logical sequence number for table.
func nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) + 1 FROM %s", table)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq for %s: %w", table, err)
	}
	return seq, nil
}

// pragma reads one pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}
