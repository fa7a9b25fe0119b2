package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lawchat/lawchat-backend/internal/repository"
)

// Store implements repository.Store on a local SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at path. The path may be a plain
// file name or ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite permits a single writer; one connection also makes the
	// append + session-metadata transaction the only writer in flight
	// and keeps an in-memory database alive for its whole lifetime.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

var _ repository.Store = (*Store)(nil)
