package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lawchat/lawchat-backend/internal/exchange"
	"github.com/lawchat/lawchat-backend/internal/repository"
)

// FailureKind classifies an error at the orchestrator boundary. Every
// store and network failure is turned into one of these before it reaches
// the caller; raw low-level errors never cross this boundary.
type FailureKind string

const (
	FailureNotFound  FailureKind = "not_found"
	FailureTransport FailureKind = "transport"
	FailureServer    FailureKind = "server"
	FailureUnknown   FailureKind = "unknown"
	FailureStorage   FailureKind = "storage"
)

// Failure is a classified, user-presentable failure.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	return f.Message
}

// storeFailure maps a persistence error. Anything beyond a missing session
// means the storage medium itself is failing, which is the one fatal
// condition: silently losing history would defeat the store's purpose.
func storeFailure(err error) *Failure {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return &Failure{Kind: FailureNotFound, Message: "This conversation no longer exists."}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// A canceled caller is not a broken storage medium.
		return &Failure{Kind: FailureUnknown, Message: fmt.Sprintf("Error: %v", err)}
	}
	return &Failure{Kind: FailureStorage, Message: "Chat history storage is unavailable."}
}

// exchangeFailure maps a remote exchange error to a user-facing notice.
func exchangeFailure(err error) *Failure {
	var exErr *exchange.Error
	if errors.As(err, &exErr) {
		switch exErr.Kind {
		case exchange.KindTransport:
			return &Failure{Kind: FailureTransport, Message: "Network error. Please check your internet connection."}
		case exchange.KindServer:
			return &Failure{Kind: FailureServer, Message: fmt.Sprintf("Server error (%d). Please try again.", exErr.Status)}
		}
	}
	return &Failure{Kind: FailureUnknown, Message: fmt.Sprintf("Error: %v", err)}
}
