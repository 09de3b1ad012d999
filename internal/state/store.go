// Package state stores catalog snapshots in SQLite.
//
// A catalog snapshot records one server's objects, the reference
// dependencies between them and their structural children, so dependency
// discovery can run offline. Snapshots are loaded from YAML catalog files
// with Import; the schema is managed by goose migrations.
package state

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// ErrEmptyCatalog is returned when no catalog has been imported yet.
var ErrEmptyCatalog = errors.New("catalog is empty: run schemadeps import first")

// Store is a SQLite-backed catalog store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new, unopened store.
func NewStore() *Store {
	return &Store{}
}

// Open opens the SQLite database at path and applies pending migrations.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases alive across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ready() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return nil
}
