package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// defaultTimeout bounds connect, write and read of a single exchange.
const defaultTimeout = 30 * time.Second

// Exchanger sends one user query to the assistant service. Implementations
// make exactly one logical request per call and never retry internally.
type Exchanger interface {
	Ask(ctx context.Context, query string) (*Reply, error)
}

// Reply is the assistant's answer to a single query.
type Reply struct {
	Response string `json:"response"`
}

type askRequest struct {
	Query string `json:"query"`
}

// RequestEditor mutates an outbound request before it is sent. The caller
// uses it to attach authentication headers; token issuance and storage are
// not this client's concern.
type RequestEditor func(req *http.Request) error

// Client talks to the assistant's chat endpoint.
type Client struct {
	baseURL string
	origin  string
	client  *http.Client
	editor  RequestEditor
	logger  *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithRequestEditor installs a hook that runs on every outbound request.
func WithRequestEditor(editor RequestEditor) Option {
	return func(c *Client) { c.editor = editor }
}

// NewClient creates a chat exchange client for the given base URL.
func NewClient(baseURL, origin string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		origin:  origin,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Ask sends a single query and returns the assistant's reply or a
// classified *Error.
func (c *Client) Ask(ctx context.Context, query string) (*Reply, error) {
	body, err := json.Marshal(askRequest{Query: query})
	if err != nil {
		return nil, &Error{Kind: KindUnknown, err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUnknown, err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	if c.editor != nil {
		if err := c.editor(req); err != nil {
			return nil, &Error{Kind: KindUnknown, err: err}
		}
	}

	log := c.logger.WithField("request_id", uuid.New().String())

	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("Chat exchange request failed")
		return nil, &Error{Kind: KindTransport, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// The body is kept for diagnostics; it never carries secrets.
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(respBody),
		}).Warn("Chat exchange returned an error status")
		return nil, &Error{Kind: KindServer, Status: resp.StatusCode, Body: string(respBody)}
	}

	var reply Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		log.WithError(err).Error("Failed to decode chat exchange response")
		return nil, &Error{Kind: KindUnknown, err: err}
	}

	return &reply, nil
}
