// Package api implements the REST clients for the four EduCloud backend
// services: auth, course catalog, search, and purchase registration. The
// services themselves are opaque collaborators; this package owns only the
// wire shapes, the error taxonomy, and the raw-token Authorization scheme
// they share.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrAuthRequired means the operation needs a session token. It is
	// raised before any network call when no token is cached, and on
	// 401/403 responses from protected endpoints.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNotFound is returned for 404 responses on lookups.
	ErrNotFound = errors.New("not found")
)

// TransportError wraps a network-level failure (DNS, refused connection,
// timeout). Rendered to the user as a generic connectivity message; the
// underlying cause goes to the log only.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "connection error, check your network and try again"
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response from a service. Message carries the
// server-provided reason verbatim when present, otherwise "error <status>".
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// TokenSource supplies the cached session token. session.Cache satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// Endpoints holds the base URLs of the four services.
type Endpoints struct {
	Auth      string
	Catalog   string
	Search    string
	Purchases string
}

// Client talks to the EduCloud services. One Client is constructed at
// startup and injected into commands.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	tokens    TokenSource
}

// New creates a client with a 10-second transport timeout. All calls are
// one-shot request/response; there is no retry policy.
func New(endpoints Endpoints, tokens TokenSource) *Client {
	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: 10 * time.Second},
		tokens:    tokens,
	}
}

// requireToken returns the cached token or ErrAuthRequired without touching
// the network. Protected operations call this first.
func (c *Client) requireToken() (string, error) {
	token, ok := c.tokens.Token()
	if !ok || token == "" {
		return "", ErrAuthRequired
	}
	return token, nil
}

// do executes one JSON request. The token, when present, goes in the
// Authorization header raw - the services do not use a Bearer scheme.
// out may be nil for calls whose body is ignored.
func (c *Client) do(ctx context.Context, method, url string, body, out any, protected bool) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := c.tokens.Token(); ok && token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("transport failure", "method", method, "url", url, "error", err)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if protected && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return ErrAuthRequired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(unwrapEnvelope(data), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError extracts the server's reason from an error body. The services
// variously use "message", "error" and "mensaje"; any of them is surfaced
// verbatim.
func statusError(status int, body []byte) *StatusError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Mensaje string `json:"mensaje"`
	}
	_ = json.Unmarshal(unwrapEnvelope(body), &payload)

	message := payload.Message
	if message == "" {
		message = payload.Error
	}
	if message == "" {
		message = payload.Mensaje
	}
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("error %d", status)
	}
	return &StatusError{Status: status, Message: message}
}

// unwrapEnvelope handles the deployments that double-encode responses as
// {"body": "<json string>"}. When the body field holds a JSON string, its
// decoded content replaces the outer document.
func unwrapEnvelope(data []byte) []byte {
	var envelope struct {
		Body *string `json:"body"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Body == nil {
		return data
	}
	return []byte(*envelope.Body)
}
