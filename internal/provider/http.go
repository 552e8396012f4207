package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tmoore22/boostd/internal/order"
)

// DefaultTimeout bounds every provider call. Provider responses are slow
// but bounded; a request that exceeds this is treated as unreachable.
const DefaultTimeout = 15 * time.Second

// HTTPClient is the production Client implementation: JSON over HTTP
// against the provider's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	corr    CorrelationGenerator
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client, e.g. to change the
// timeout or install a test transport.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.httpc = c
	}
}

// WithCorrelationGenerator replaces the request-id generator.
// Tests use a FixedGenerator for deterministic request logs.
func WithCorrelationGenerator(g CorrelationGenerator) HTTPOption {
	return func(h *HTTPClient) {
		h.corr = g
	}
}

// NewHTTPClient creates a client for the provider API at baseURL.
func NewHTTPClient(baseURL, apiKey string, opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: DefaultTimeout},
		corr:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// submitReply is the provider's acceptance payload.
type submitReply struct {
	Reference string `json:"reference"`
}

// statusReply is the provider's status payload. Delivered is absent for
// comment orders.
type statusReply struct {
	Status    string `json:"status"`
	Delivered int64  `json:"delivered"`
}

// errorReply is the provider's failure payload on 4xx responses.
type errorReply struct {
	Error string `json:"error"`
}

// SubmitVoteOrder implements Client.
func (h *HTTPClient) SubmitVoteOrder(ctx context.Context, sub VoteSubmission) (string, error) {
	const op = "submit vote order"
	body := map[string]any{
		"link":     sub.Link,
		"quantity": sub.Quantity,
		"service":  sub.ServiceKind,
		"speed":    sub.Speed,
	}
	var reply submitReply
	if err := h.do(ctx, op, http.MethodPost, "/v1/votes", body, &reply); err != nil {
		return "", err
	}
	if reply.Reference == "" {
		return "", NewUnreachable(op, fmt.Errorf("provider returned no reference"))
	}
	return reply.Reference, nil
}

// SubmitCommentOrder implements Client.
func (h *HTTPClient) SubmitCommentOrder(ctx context.Context, sub CommentSubmission) (string, error) {
	const op = "submit comment order"
	body := map[string]any{
		"link":    sub.Link,
		"content": sub.Content,
	}
	var reply submitReply
	if err := h.do(ctx, op, http.MethodPost, "/v1/comments", body, &reply); err != nil {
		return "", err
	}
	if reply.Reference == "" {
		return "", NewUnreachable(op, fmt.Errorf("provider returned no reference"))
	}
	return reply.Reference, nil
}

// GetVoteOrderStatus implements Client.
func (h *HTTPClient) GetVoteOrderStatus(ctx context.Context, reference string) (VoteStatus, error) {
	const op = "get vote order status"
	var reply statusReply
	path := "/v1/votes/" + url.PathEscape(reference)
	if err := h.do(ctx, op, http.MethodGet, path, nil, &reply); err != nil {
		return VoteStatus{}, err
	}
	st, err := mapStatus(reply.Status)
	if err != nil {
		return VoteStatus{}, NewUnreachable(op, err)
	}
	return VoteStatus{Status: st, DeliveredCount: reply.Delivered}, nil
}

// GetCommentOrderStatus implements Client.
func (h *HTTPClient) GetCommentOrderStatus(ctx context.Context, reference string) (CommentStatus, error) {
	const op = "get comment order status"
	var reply statusReply
	path := "/v1/comments/" + url.PathEscape(reference)
	if err := h.do(ctx, op, http.MethodGet, path, nil, &reply); err != nil {
		return CommentStatus{}, err
	}
	st, err := mapStatus(reply.Status)
	if err != nil {
		return CommentStatus{}, NewUnreachable(op, err)
	}
	return CommentStatus{Status: st}, nil
}

// CancelVoteOrder implements Client.
func (h *HTTPClient) CancelVoteOrder(ctx context.Context, reference string) error {
	const op = "cancel vote order"
	path := "/v1/votes/" + url.PathEscape(reference) + "/cancel"
	return h.do(ctx, op, http.MethodPost, path, map[string]any{}, &struct{}{})
}

// do sends one request and classifies the outcome:
//
//   - connection error, timeout, 5xx, malformed body -> KindUnreachable
//   - any 4xx -> KindRejected, with the provider's error reason
//   - 2xx -> decoded into out
func (h *HTTPClient) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return NewUnreachable(op, fmt.Errorf("encode request: %w", err))
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return NewUnreachable(op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("X-Api-Key", h.apiKey)
	correlationID := h.corr.Generate()
	req.Header.Set("X-Request-Id", correlationID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("provider request",
		"op", op,
		"method", method,
		"path", path,
		"request_id", correlationID,
	)

	resp, err := h.httpc.Do(req)
	if err != nil {
		return NewUnreachable(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return NewUnreachable(op, fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 500:
		return NewUnreachable(op, fmt.Errorf("provider returned %s", resp.Status))

	case resp.StatusCode >= 400:
		var reply errorReply
		reason := resp.Status
		if err := json.Unmarshal(respBody, &reply); err == nil && reply.Error != "" {
			reason = reply.Error
		}
		return NewRejected(op, reason)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return NewUnreachable(op, fmt.Errorf("decode response: %w", err))
	}

	slog.Debug("provider response",
		"op", op,
		"request_id", correlationID,
		"status_code", resp.StatusCode,
	)
	return nil
}

// compile-time interface check
var _ Client = (*HTTPClient)(nil)

// ParseWireStatus is exposed for tooling that inspects raw provider
// payloads (scenario files, operator scripts).
func ParseWireStatus(wire string) (order.Status, error) {
	return mapStatus(wire)
}
