package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lawchat/lawchat-backend/internal/repository"
)

// messageRow mirrors the messages table.
type messageRow struct {
	ID        int64  `db:"id"`
	SessionID int64  `db:"session_id"`
	Content   string `db:"content"`
	IsUser    bool   `db:"is_user"`
	CreatedAt int64  `db:"created_at"`
}

func (r messageRow) toMessage() repository.Message {
	return repository.Message{
		ID:        r.ID,
		SessionID: r.SessionID,
		Content:   r.Content,
		IsUser:    r.IsUser,
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
}

// AppendMessage inserts a message and refreshes the parent session's
// last-activity timestamp and preview. Both writes commit together, so a
// reader never sees one without the other.
func (s *Store) AppendMessage(ctx context.Context, sessionID int64, content string, isUser bool) (*repository.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ?, last_message = ? WHERE id = ?`,
		now, content, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update session activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("append to session %d: %w", sessionID, repository.ErrSessionNotFound)
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, content, is_user, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, content, isUser, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read message id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	return &repository.Message{
		ID:        id,
		SessionID: sessionID,
		Content:   content,
		IsUser:    isUser,
		CreatedAt: time.UnixMilli(now),
	}, nil
}

// ListMessages retrieves all messages for a session in ascending timestamp
// order; the monotonic message id breaks ties in insertion order.
func (s *Store) ListMessages(ctx context.Context, sessionID int64) ([]repository.Message, error) {
	var rows []messageRow
	query := `SELECT id, session_id, content, is_user, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`

	if err := s.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]repository.Message, len(rows))
	for i, row := range rows {
		messages[i] = row.toMessage()
	}

	return messages, nil
}

// FirstUserMessage returns the earliest user-authored message of a session,
// or nil when there is none yet.
func (s *Store) FirstUserMessage(ctx context.Context, sessionID int64) (*repository.Message, error) {
	var row messageRow
	query := `SELECT id, session_id, content, is_user, created_at
		FROM messages
		WHERE session_id = ? AND is_user = 1
		ORDER BY created_at ASC, id ASC
		LIMIT 1`

	if err := s.db.GetContext(ctx, &row, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get first user message: %w", err)
	}

	msg := row.toMessage()
	return &msg, nil
}
