package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lawchat/lawchat-backend/internal/exchange"
	"github.com/lawchat/lawchat-backend/internal/history"
	"github.com/lawchat/lawchat-backend/internal/repository"
)

// WelcomeMessage seeds every new or still-empty session. It is persisted
// like any other assistant message.
const WelcomeMessage = `Hello, I am the LawChat virtual assistant. I can assist you with:

• Membership requirements and benefits
• Ethics, compliance and regulatory matters

If you have any questions, feel free to ask.

Please note, LawChat is not a lawyer. I can provide information, but not legal advice.`

var (
	// ErrEmptyInput is returned for empty or whitespace-only submissions.
	// No state changes and nothing is written.
	ErrEmptyInput = errors.New("empty input")

	// ErrTurnInFlight is returned while a previous turn's exchange is
	// still outstanding.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrConfirmationRequired is returned when clearing all history
	// without explicit confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// ConversationService orchestrates user turns: it persists the user's
// message, invokes the remote exchange, persists the reply and keeps the
// store and the caller's view consistent.
type ConversationService struct {
	store    repository.Store
	exchange exchange.Exchanger
	logger   *logrus.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewConversationService creates a new conversation orchestrator.
func NewConversationService(store repository.Store, ex exchange.Exchanger, logger *logrus.Logger) *ConversationService {
	return &ConversationService{
		store:    store,
		exchange: ex,
		logger:   logger,
	}
}

// TurnResult is the outcome of one user turn. The user's message is always
// present once the turn was accepted; the assistant message and the notice
// are mutually exclusive.
type TurnResult struct {
	UserMessage      *repository.Message `json:"user_message"`
	AssistantMessage *repository.Message `json:"assistant_message,omitempty"`
	Notice           *Failure            `json:"notice,omitempty"`
	HistoryChanged   bool                `json:"history_changed"`
}

// SessionView is the in-memory view of one session's conversation.
type SessionView struct {
	SessionID int64                `json:"session_id"`
	Messages  []repository.Message `json:"messages"`
}

// SubmitTurn runs one user turn against the given session.
//
// The user's message is persisted before the network call begins, so it
// survives any network outcome. A failed exchange persists nothing for the
// assistant; the result then carries a classified notice and the
// conversation stays usable. At most one exchange is outstanding at a time.
func (s *ConversationService) SubmitTurn(ctx context.Context, sessionID int64, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	if !s.beginTurn() {
		return nil, ErrTurnInFlight
	}
	defer s.endTurn()

	userMsg, err := s.store.AppendMessage(ctx, sessionID, text, true)
	if err != nil {
		return nil, storeFailure(err)
	}

	result := &TurnResult{UserMessage: userMsg}

	// The history list derives its title from the first user message, so
	// the caller must redraw it after that message lands.
	first, err := s.store.FirstUserMessage(ctx, sessionID)
	if err != nil {
		s.logger.WithField("session_id", sessionID).WithError(err).
			Warn("Failed to check for first user message")
	} else if first != nil && first.ID == userMsg.ID {
		result.HistoryChanged = true
	}

	reply, err := s.exchange.Ask(ctx, text)
	if err != nil {
		result.Notice = exchangeFailure(err)
		s.logTurnFailure(sessionID, result.Notice, err)
		return result, nil
	}

	// Persist with a detached context: the reply must reach the store
	// even if the caller went away while the request was in flight.
	botMsg, err := s.store.AppendMessage(context.WithoutCancel(ctx), sessionID, reply.Response, false)
	if err != nil {
		result.Notice = storeFailure(err)
		s.logTurnFailure(sessionID, result.Notice, err)
		return result, nil
	}

	result.AssistantMessage = botMsg
	return result, nil
}

// Busy reports whether an exchange is outstanding. The UI uses this to
// disable the submit affordance for the duration of a turn.
func (s *ConversationService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// NewSession clears the caller's view: it creates a fresh session and seeds
// it with the welcome message.
func (s *ConversationService) NewSession(ctx context.Context) (*SessionView, error) {
	sess, err := s.store.CreateSession(ctx, "")
	if err != nil {
		return nil, storeFailure(err)
	}

	welcome, err := s.store.AppendMessage(ctx, sess.ID, WelcomeMessage, false)
	if err != nil {
		return nil, storeFailure(err)
	}

	s.logger.WithField("session_id", sess.ID).Info("Created new chat session")

	return &SessionView{SessionID: sess.ID, Messages: []repository.Message{*welcome}}, nil
}

// SwitchSession loads a stored session's conversation. A session that has
// no messages yet is seeded with the welcome message.
func (s *ConversationService) SwitchSession(ctx context.Context, sessionID int64) (*SessionView, error) {
	messages, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, storeFailure(err)
	}

	if len(messages) == 0 {
		welcome, err := s.store.AppendMessage(ctx, sessionID, WelcomeMessage, false)
		if err != nil {
			return nil, storeFailure(err)
		}
		messages = []repository.Message{*welcome}
	}

	return &SessionView{SessionID: sessionID, Messages: messages}, nil
}

// ClearHistory irreversibly wipes all sessions and messages, then starts
// over with a fresh welcome session. It refuses to act without explicit
// confirmation.
func (s *ConversationService) ClearHistory(ctx context.Context, confirm bool) (*SessionView, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}

	if err := s.store.ClearAll(ctx); err != nil {
		return nil, storeFailure(err)
	}

	s.logger.Info("Cleared all chat history")

	return s.NewSession(ctx)
}

// RenameSession updates a session's display name. Rename is advisory; a
// session deleted in the meantime makes this a no-op.
func (s *ConversationService) RenameSession(ctx context.Context, sessionID int64, name string) error {
	if err := s.store.RenameSession(ctx, sessionID, name); err != nil {
		return storeFailure(err)
	}
	return nil
}

// DeleteSession removes one session and its messages.
func (s *ConversationService) DeleteSession(ctx context.Context, sessionID int64) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return storeFailure(err)
	}
	return nil
}

// ListHistory derives the navigable session list from the store's current
// contents.
func (s *ConversationService) ListHistory(ctx context.Context) ([]history.Entry, error) {
	entries, err := history.Build(ctx, s.store)
	if err != nil {
		return nil, storeFailure(err)
	}
	return entries, nil
}

// Bootstrap returns the most recently active session's view, creating a
// fresh welcome session when the store is empty. Called once at startup.
func (s *ConversationService) Bootstrap(ctx context.Context) (*SessionView, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}

	if len(sessions) == 0 {
		return s.NewSession(ctx)
	}

	return s.SwitchSession(ctx, sessions[0].ID)
}

func (s *ConversationService) beginTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *ConversationService) endTurn() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *ConversationService) logTurnFailure(sessionID int64, fail *Failure, err error) {
	entry := s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"kind":       fail.Kind,
	}).WithError(err)

	if fail.Kind == FailureUnknown || fail.Kind == FailureStorage {
		entry.Error("Chat turn failed")
		return
	}
	entry.Warn("Chat turn failed")
}
