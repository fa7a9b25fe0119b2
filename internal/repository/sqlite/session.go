package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/lawchat/lawchat-backend/internal/repository"
)

// DefaultSessionName is used when a session is created without a name.
const DefaultSessionName = "New Chat"

// sessionRow mirrors the sessions table. Timestamps are stored as unix
// milliseconds so ordering and tie-breaking stay exact.
type sessionRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	LastMessage string `db:"last_message"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r sessionRow) toSession() *repository.Session {
	return &repository.Session{
		ID:          r.ID,
		Name:        r.Name,
		LastMessage: r.LastMessage,
		CreatedAt:   time.UnixMilli(r.CreatedAt),
		UpdatedAt:   time.UnixMilli(r.UpdatedAt),
	}
}

// CreateSession allocates a new session with a fresh monotonic identifier.
func (s *Store) CreateSession(ctx context.Context, name string) (*repository.Session, error) {
	if name == "" {
		name = DefaultSessionName
	}
	now := time.Now().UnixMilli()

	query := `INSERT INTO sessions (name, last_message, created_at, updated_at) VALUES (?, '', ?, ?)`

	res, err := s.db.ExecContext(ctx, query, name, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}

	return &repository.Session{
		ID:        id,
		Name:      name,
		CreatedAt: time.UnixMilli(now),
		UpdatedAt: time.UnixMilli(now),
	}, nil
}

// ListSessions retrieves all sessions ordered by last activity desc.
func (s *Store) ListSessions(ctx context.Context) ([]*repository.Session, error) {
	var rows []sessionRow
	query := `SELECT id, name, last_message, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id DESC`

	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*repository.Session, len(rows))
	for i, row := range rows {
		sessions[i] = row.toSession()
	}

	return sessions, nil
}

// RenameSession updates the display name only. Rename is advisory: a
// missing session is a silent no-op.
func (s *Store) RenameSession(ctx context.Context, id int64, name string) error {
	query := `UPDATE sessions SET name = ? WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, name, id); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}

	return nil
}

// DeleteSession removes a session and, via cascade, all its messages.
// Deleting an id that no longer exists is a no-op.
func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	query := `DELETE FROM sessions WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// ClearAll removes every session and message in one transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	return nil
}
