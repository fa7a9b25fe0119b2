package exchange

import "fmt"

// Kind classifies an exchange failure for the orchestrator.
type Kind string

const (
	// KindTransport covers connectivity failures and timeouts; the
	// request may never have reached the server.
	KindTransport Kind = "transport"

	// KindServer covers non-2xx responses; Status and Body carry the
	// server's diagnostic context.
	KindServer Kind = "server"

	// KindUnknown covers everything else, e.g. a malformed response.
	KindUnknown Kind = "unknown"
)

// Error is a classified exchange failure.
type Error struct {
	Kind   Kind
	Status int
	Body   string
	err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("exchange transport error: %v", e.err)
	case KindServer:
		return fmt.Sprintf("exchange server error: status %d: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("exchange error: %v", e.err)
	}
}

func (e *Error) Unwrap() error {
	return e.err
}
