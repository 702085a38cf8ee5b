// Package dispatch submits requests to the two remote planning targets and
// classifies every failure exactly once, at the transport boundary. Callers
// switch on Error.Kind; nothing downstream re-parses transport internals.
package dispatch

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

	"github.com/dominggo/ai-osp/internal/models"
)

// Kind classifies a dispatch failure.
type Kind int

const (
	// KindTimeout: the per-call timeout expired before a response arrived.
	KindTimeout Kind = iota
	// KindUnreachable: transport or connection failure.
	KindUnreachable
	// KindRejected: the target answered with a non-2xx status.
	KindRejected
	// KindCanceled: the caller canceled the in-flight call.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindRejected:
		return "rejected"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// Error is the tagged dispatch failure. Status and Detail are populated for
// KindRejected when the target returned a structured error body.
type Error struct {
	Kind   Kind
	Target models.Target
	Path   string
	Status int
	Detail string
	cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("target %s %s: %s", e.Target, e.Path, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// AsError extracts a dispatch Error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Policy carries the per-call timeout. Timeouts are per-target and
// per-operation: probes run short regardless of target, plans run short
// against A and long against B. The caller picks; the dispatcher enforces.
type Policy struct {
	Timeout time.Duration
}

// Client submits requests to the two targets. It never retries; retry policy
// belongs to callers.
type Client struct {
	baseURLs map[models.Target]string
	http     *http.Client
}

// New creates a dispatcher for the given target base URLs.
func New(targetAURL, targetBURL string) *Client {
	return &Client{
		baseURLs: map[models.Target]string{
			models.TargetA: strings.TrimRight(targetAURL, "/"),
			models.TargetB: strings.TrimRight(targetBURL, "/"),
		},
		// Per-call deadlines come from Policy via context; no client-wide
		// timeout that could undercut target B's long budget.
		http: &http.Client{},
	}
}

// BaseURL returns the configured base URL for a target.
func (c *Client) BaseURL(target models.Target) string {
	return c.baseURLs[target]
}

// Submit POSTs a JSON payload to path on the chosen target and returns the
// raw response body. Failures come back as *Error.
func (c *Client) Submit(ctx context.Context, target models.Target, path string, payload any, policy Policy) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, target, path, body, policy)
}

// Get issues a GET to path on the chosen target. Used for health probes.
func (c *Client) Get(ctx context.Context, target models.Target, path string, policy Policy) ([]byte, error) {
	return c.do(ctx, http.MethodGet, target, path, nil, policy)
}

func (c *Client) do(ctx context.Context, method string, target models.Target, path string, body []byte, policy Policy) ([]byte, error) {
	base, ok := c.baseURLs[target]
	if !ok || base == "" {
		return nil, fmt.Errorf("no base URL for target %s", target)
	}

	ctx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ClassifyTransport(err, target, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyTransport(err, target, path)
	}

	slog.Debug("dispatch", "target", target, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, RejectionError(target, path, resp.StatusCode, data)
	}
	return data, nil
}

// RejectionError builds the tagged error for a non-2xx response.
func RejectionError(target models.Target, path string, status int, body []byte) *Error {
	return &Error{
		Kind:   KindRejected,
		Target: target,
		Path:   path,
		Status: status,
		Detail: rejectionDetail(body, status),
	}
}

// ClassifyTransport maps a transport-level failure to a tagged Error.
// Deadline expiry wins over everything else; explicit cancellation is kept
// distinct so callers can tell an aborted plan from a slow target. Exported
// for the api client, which talks to the layer server over the same
// classification rules.
func ClassifyTransport(err error, target models.Target, path string) *Error {
	kind := KindUnreachable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	}
	return &Error{Kind: kind, Target: target, Path: path, cause: err}
}

// errorBody is the structured error shape both targets and the layer server
// use: {"error": ..., "message"/"detail": ...}.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// rejectionDetail extracts a human-readable reason from a non-2xx body,
// falling back to a generic message when the body is not parseable.
func rejectionDetail(data []byte, status int) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		switch {
		case eb.Error != "" && eb.Message != "":
			return eb.Error + ": " + eb.Message
		case eb.Error != "":
			return eb.Error
		case eb.Detail != "":
			return eb.Detail
		case eb.Message != "":
			return eb.Message
		}
	}
	return fmt.Sprintf("request rejected with status %d", status)
}
