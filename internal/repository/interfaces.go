package repository

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when an operation references a session
// that does not exist in the store.
var ErrSessionNotFound = errors.New("session not found")

// Session represents a chat session
type Session struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	LastMessage string    `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message represents a chat message. Messages are immutable once created;
// they are only ever appended, or removed together with their session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRepository defines session storage operations
type SessionRepository interface {
	// CreateSession allocates a new session. An empty name defaults to
	// "New Chat".
	CreateSession(ctx context.Context, name string) (*Session, error)

	// ListSessions returns all sessions ordered by last activity,
	// most recent first.
	ListSessions(ctx context.Context) ([]*Session, error)

	// RenameSession updates the display name only. Renaming a session
	// that no longer exists is a no-op.
	RenameSession(ctx context.Context, id int64, name string) error

	// DeleteSession removes the session and all its messages as one
	// atomic unit. Deleting a non-existent id is a no-op.
	DeleteSession(ctx context.Context, id int64) error
}

// MessageRepository defines message storage operations
type MessageRepository interface {
	// AppendMessage inserts a new message and refreshes the parent
	// session's last-activity timestamp and preview in the same
	// transaction. Returns ErrSessionNotFound if the session is gone.
	AppendMessage(ctx context.Context, sessionID int64, content string, isUser bool) (*Message, error)

	// ListMessages returns a session's messages in ascending timestamp
	// order, insertion order breaking ties. A session with no messages
	// yields an empty slice, not an error.
	ListMessages(ctx context.Context, sessionID int64) ([]Message, error)

	// FirstUserMessage returns the earliest user-authored message of a
	// session, or nil when the session has none.
	FirstUserMessage(ctx context.Context, sessionID int64) (*Message, error)
}

// Store is the full persistence contract the conversation core depends on.
type Store interface {
	SessionRepository
	MessageRepository

	// ClearAll removes every session and message. Idempotent.
	ClearAll(ctx context.Context) error
}
