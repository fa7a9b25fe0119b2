package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawchat/lawchat-backend/internal/exchange"
	"github.com/lawchat/lawchat-backend/internal/repository"
	"github.com/lawchat/lawchat-backend/internal/repository/sqlite"
)

// fakeExchanger stubs the remote assistant service.
type fakeExchanger struct {
	reply string
	err   error
	block chan struct{}
	onAsk func()
}

func (f *fakeExchanger) Ask(ctx context.Context, query string) (*exchange.Reply, error) {
	if f.block != nil {
		<-f.block
	}
	if f.onAsk != nil {
		f.onAsk()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &exchange.Reply{Response: f.reply}, nil
}

func newTestService(t *testing.T, ex exchange.Exchanger) (*ConversationService, repository.Store) {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewConversationService(store, ex, logger), store
}

func TestSubmitTurnSuccess(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "Hi there"})
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	result, err := svc.SubmitTurn(ctx, sess.ID, "Hello")
	require.NoError(t, err)
	require.NotNil(t, result.AssistantMessage)
	assert.Nil(t, result.Notice)
	assert.Equal(t, "Hello", result.UserMessage.Content)
	assert.Equal(t, "Hi there", result.AssistantMessage.Content)

	messages, err := store.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.True(t, messages[0].IsUser)
	assert.Equal(t, "Hi there", messages[1].Content)
	assert.False(t, messages[1].IsUser)

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", sessions[0].LastMessage)
}

func TestSubmitTurnExchangeFailure(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{
		err: &exchange.Error{Kind: exchange.KindTransport},
	})
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	result, err := svc.SubmitTurn(ctx, sess.ID, "Hello")
	require.NoError(t, err)
	assert.Nil(t, result.AssistantMessage)
	require.NotNil(t, result.Notice)
	assert.Equal(t, FailureTransport, result.Notice.Kind)
	assert.Contains(t, result.Notice.Message, "Network error")

	// The user's message survives; nothing is persisted for the assistant.
	messages, err := store.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.True(t, messages[0].IsUser)
}

func TestSubmitTurnServerFailureNotice(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{
		err: &exchange.Error{Kind: exchange.KindServer, Status: 503},
	})
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	result, err := svc.SubmitTurn(ctx, sess.ID, "Hello")
	require.NoError(t, err)
	require.NotNil(t, result.Notice)
	assert.Equal(t, FailureServer, result.Notice.Kind)
	assert.Contains(t, result.Notice.Message, "503")
}

func TestSubmitTurnEmptyInput(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "unused"})
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	_, err = svc.SubmitTurn(ctx, sess.ID, "   \t\n")
	assert.ErrorIs(t, err, ErrEmptyInput)

	messages, err := store.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "rejected input must not be written")
}

func TestSubmitTurnMissingSession(t *testing.T) {
	svc, _ := newTestService(t, &fakeExchanger{reply: "unused"})

	_, err := svc.SubmitTurn(context.Background(), 42, "Hello")
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, FailureNotFound, fail.Kind)
}

func TestSubmitTurnRejectsConcurrentTurn(t *testing.T) {
	ex := &fakeExchanger{reply: "slow reply", block: make(chan struct{})}
	svc, store := newTestService(t, ex)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	type outcome struct {
		result *TurnResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := svc.SubmitTurn(ctx, sess.ID, "first")
		done <- outcome{result, err}
	}()

	require.Eventually(t, svc.Busy, time.Second, time.Millisecond,
		"first turn should be in flight")

	_, err = svc.SubmitTurn(ctx, sess.ID, "second")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(ex.block)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, "slow reply", first.result.AssistantMessage.Content)
	assert.False(t, svc.Busy())
}

func TestSubmitTurnPersistsReplyAfterCallerCancel(t *testing.T) {
	// The UI goes away while the request is in flight: the exchanger
	// cancels the caller's context before its reply arrives.
	ctx, cancel := context.WithCancel(context.Background())
	ex := &fakeExchanger{reply: "late reply", onAsk: cancel}
	svc, store := newTestService(t, ex)

	sess, err := store.CreateSession(context.Background(), "")
	require.NoError(t, err)

	result, err := svc.SubmitTurn(ctx, sess.ID, "Hello")
	require.NoError(t, err)
	require.NotNil(t, result.AssistantMessage)
	assert.Nil(t, result.Notice)

	// Persistence must not depend on the caller surviving the turn.
	messages, err := store.ListMessages(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.Equal(t, "late reply", messages[1].Content)
}

// firstUserFailingStore fails the first-user-message lookup only.
type firstUserFailingStore struct {
	repository.Store
}

func (f *firstUserFailingStore) FirstUserMessage(ctx context.Context, sessionID int64) (*repository.Message, error) {
	return nil, errors.New("disk read error")
}

func TestSubmitTurnLogsFirstUserMessageFailure(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())

	logger, hook := logrustest.NewNullLogger()
	svc := NewConversationService(&firstUserFailingStore{store}, &fakeExchanger{reply: "ok"}, logger)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	// The turn still completes; only the history flag is suppressed.
	result, err := svc.SubmitTurn(ctx, sess.ID, "Hello")
	require.NoError(t, err)
	require.NotNil(t, result.AssistantMessage)
	assert.False(t, result.HistoryChanged)

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "first user message") {
			logged = true
		}
	}
	assert.True(t, logged, "suppressed index check must be logged")
}

func TestSubmitTurnFirstUserMessageFlagsHistory(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "ok"})
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)
	// Welcome message does not count; only user messages title a session.
	_, err = store.AppendMessage(ctx, sess.ID, WelcomeMessage, false)
	require.NoError(t, err)

	result, err := svc.SubmitTurn(ctx, sess.ID, "first question")
	require.NoError(t, err)
	assert.True(t, result.HistoryChanged)

	result, err = svc.SubmitTurn(ctx, sess.ID, "second question")
	require.NoError(t, err)
	assert.False(t, result.HistoryChanged)
}

func TestNewSessionSeedsWelcome(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "unused"})
	ctx := context.Background()

	view, err := svc.NewSession(ctx)
	require.NoError(t, err)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, WelcomeMessage, view.Messages[0].Content)
	assert.False(t, view.Messages[0].IsUser)

	// The welcome message is persisted like any other assistant message.
	messages, err := store.ListMessages(ctx, view.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, WelcomeMessage, messages[0].Content)
}

func TestSwitchSessionSeedsEmptySession(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "unused"})
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	view, err := svc.SwitchSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, WelcomeMessage, view.Messages[0].Content)
}

func TestSwitchSessionMissing(t *testing.T) {
	svc, _ := newTestService(t, &fakeExchanger{reply: "unused"})

	_, err := svc.SwitchSession(context.Background(), 42)
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, FailureNotFound, fail.Kind)
}

func TestClearHistoryRequiresConfirmation(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "unused"})
	ctx := context.Background()

	view, err := svc.NewSession(ctx)
	require.NoError(t, err)
	_, err = svc.SubmitTurn(ctx, view.SessionID, "keep me")
	require.NoError(t, err)

	_, err = svc.ClearHistory(ctx, false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sessions, "unconfirmed clear must not touch the store")
}

func TestClearHistoryStartsOver(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "ok"})
	ctx := context.Background()

	view, err := svc.NewSession(ctx)
	require.NoError(t, err)
	_, err = svc.SubmitTurn(ctx, view.SessionID, "old conversation")
	require.NoError(t, err)

	fresh, err := svc.ClearHistory(ctx, true)
	require.NoError(t, err)
	assert.NotEqual(t, view.SessionID, fresh.SessionID)
	require.Len(t, fresh.Messages, 1)
	assert.Equal(t, WelcomeMessage, fresh.Messages[0].Content)

	// Exactly one session remains: the fresh welcome session.
	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, fresh.SessionID, sessions[0].ID)
}

func TestRenameSessionAdvisory(t *testing.T) {
	svc, _ := newTestService(t, &fakeExchanger{reply: "unused"})

	// Renaming a vanished session is a soft no-op, never an error.
	assert.NoError(t, svc.RenameSession(context.Background(), 999, "ghost"))
}

func TestBootstrapEmptyStore(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "unused"})
	ctx := context.Background()

	view, err := svc.Bootstrap(ctx)
	require.NoError(t, err)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, WelcomeMessage, view.Messages[0].Content)

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestBootstrapResumesMostRecent(t *testing.T) {
	svc, store := newTestService(t, &fakeExchanger{reply: "ok"})
	ctx := context.Background()

	older, err := svc.NewSession(ctx)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newer, err := svc.NewSession(ctx)
	require.NoError(t, err)
	_ = older

	view, err := svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.SessionID, view.SessionID)

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2, "bootstrap must not create extra sessions")
}

func TestStoreFailureClassification(t *testing.T) {
	fail := storeFailure(fmt.Errorf("append to session 42: %w", repository.ErrSessionNotFound))
	assert.Equal(t, FailureNotFound, fail.Kind)

	// A canceled caller is not the fatal storage condition.
	fail = storeFailure(fmt.Errorf("failed to begin transaction: %w", context.Canceled))
	assert.Equal(t, FailureUnknown, fail.Kind)

	fail = storeFailure(context.DeadlineExceeded)
	assert.Equal(t, FailureUnknown, fail.Kind)

	fail = storeFailure(errors.New("database is locked"))
	assert.Equal(t, FailureStorage, fail.Kind)
}

func TestExchangeFailureClassification(t *testing.T) {
	fail := exchangeFailure(&exchange.Error{Kind: exchange.KindTransport})
	assert.Equal(t, FailureTransport, fail.Kind)

	fail = exchangeFailure(&exchange.Error{Kind: exchange.KindServer, Status: 500})
	assert.Equal(t, FailureServer, fail.Kind)

	fail = exchangeFailure(errors.New("something odd"))
	assert.Equal(t, FailureUnknown, fail.Kind)
}
