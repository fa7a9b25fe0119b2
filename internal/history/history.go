// Package history derives the display-ready session list from the store.
// It is a pure function of the store's current contents and keeps no state
// of its own; callers rebuild it whenever the list must be redrawn.
package history

import (
	"context"
	"time"

	"github.com/lawchat/lawchat-backend/internal/repository"
)

const (
	// maxTitleLen is the character budget for a session title; longer
	// first messages are cut to truncateLen runes plus an ellipsis.
	maxTitleLen = 30
	truncateLen = 27

	fallbackTitle = "New Chat"
)

// Entry is one row of the navigable session list.
type Entry struct {
	SessionID int64     `json:"session_id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Source is the slice of the store the index reads from.
type Source interface {
	ListSessions(ctx context.Context) ([]*repository.Session, error)
	FirstUserMessage(ctx context.Context, sessionID int64) (*repository.Message, error)
}

// Build derives one entry per stored session, most recently active first.
func Build(ctx context.Context, src Source) ([]Entry, error) {
	sessions, err := src.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(sessions))
	for _, sess := range sessions {
		first, err := src.FirstUserMessage(ctx, sess.ID)
		if err != nil {
			return nil, err
		}

		title := fallbackTitle
		if first != nil {
			title = Title(first.Content)
		}

		entries = append(entries, Entry{
			SessionID: sess.ID,
			Title:     title,
			Preview:   sess.LastMessage,
			UpdatedAt: sess.UpdatedAt,
		})
	}

	return entries, nil
}

// Title turns a session's first user message into its display title,
// truncating with an ellipsis marker when it exceeds the budget.
func Title(firstUserMessage string) string {
	runes := []rune(firstUserMessage)
	if len(runes) <= maxTitleLen {
		return firstUserMessage
	}
	return string(runes[:truncateLen]) + "..."
}
