package api

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gathersync-dev/gathersync/pkg/auth"
	"github.com/gathersync-dev/gathersync/pkg/feed"
	"github.com/gathersync-dev/gathersync/pkg/metrics"
)

// tracerName identifies this package's otel tracer.
const tracerName = "gathersync/api"

// Client talks to the interaction backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is preserved,
// so compose with auth via WithTokenSource or supply your own transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTokenSource wraps the client transport with the refresh-once-on-401
// policy fed by source.
func WithTokenSource(source auth.TokenSource) ClientOption {
	return func(c *Client) {
		c.http.Transport = auth.NewTransport(source, c.http.Transport)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink. A nil sink disables instrumentation.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default().With("component", "api"),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFeed retrieves the authoritative interaction snapshot for an event.
func (c *Client) FetchFeed(ctx context.Context, eventID, viewerID string) (feed.EventInteractions, error) {
	const op = "fetch_feed"

	var out feed.EventInteractions
	path := fmt.Sprintf("/events/feed/%s?current_user=%s", url.PathEscape(eventID), url.QueryEscape(viewerID))
	if err := c.call(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return feed.EventInteractions{}, err
	}
	return out, nil
}

// CommentRequest is the payload for creating a post or a reply.
// A nil ParentID creates a top-level post.
type CommentRequest struct {
	Username  string       `json:"username"`
	EventID   string       `json:"event_id"`
	Text      string       `json:"text"`
	ImageURLs []string     `json:"image_urls"`
	ParentID  *feed.PostID `json:"parent_id,omitempty"`
}

// CreateComment submits a new post or reply and returns the server's record.
// The creation response carries no derived like data; callers reset like
// state to zero.
func (c *Client) CreateComment(ctx context.Context, req CommentRequest) (feed.Post, error) {
	const op = "create_comment"

	var out struct {
		Post feed.Post `json:"post"`
	}
	if err := c.call(ctx, op, http.MethodPost, "/events/comment/", req, &out); err != nil {
		return feed.Post{}, err
	}
	if out.Post.ID == 0 {
		return feed.Post{}, &DecodeError{Op: op, Err: fmt.Errorf("response carries no post id")}
	}
	return out.Post, nil
}

// LikeRequest is the payload for toggling a like.
type LikeRequest struct {
	Username string      `json:"username"`
	EventID  string      `json:"event_id"`
	PostID   feed.PostID `json:"post_id"`
}

// LikeResult is the authoritative like state after a toggle.
type LikeResult struct {
	Success    bool `json:"success"`
	Liked      bool `json:"liked"`
	TotalLikes int  `json:"total_likes"`
}

// ToggleLike flips the viewer's like on a post and returns the authoritative
// count and flag. Callers must adopt these values rather than trusting their
// local delta.
func (c *Client) ToggleLike(ctx context.Context, req LikeRequest) (LikeResult, error) {
	const op = "toggle_like"

	var out LikeResult
	if err := c.call(ctx, op, http.MethodPost, "/events/like/", req, &out); err != nil {
		return LikeResult{}, err
	}
	if !out.Success {
		return LikeResult{}, &ServerError{Op: op, Status: http.StatusOK, Message: "backend reported failure"}
	}
	if out.TotalLikes < 0 {
		out.TotalLikes = 0
	}
	return out, nil
}

// call performs one request with tracing, metrics, and error classification.
// body (when non-nil) is JSON-encoded; the response is decoded into out.
func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	start := time.Now()
	status, err := c.do(ctx, op, method, path, body, out)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("request failed",
			"operation", op,
			"status", status,
			"elapsed", elapsed,
			"error", err)
	}

	c.metrics.RecordRequest(op, requestStatusLabel(status, err), elapsed)
	return err
}

// do executes the request and maps every failure into the error taxonomy.
// Returns the HTTP status (0 when no response was received).
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (int, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// The auth transport already spent its one refresh.
		return resp.StatusCode, &AuthError{Op: op}

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return resp.StatusCode, &ServerError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &DecodeError{Op: op, Err: err}
		}
	}
	return resp.StatusCode, nil
}

// readErrorMessage extracts the backend's error text from a failure body,
// accepting either {"error": "..."} or plain text.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

// requestStatusLabel renders the metrics status label for a request outcome.
func requestStatusLabel(status int, err error) string {
	if err == nil {
		return "ok"
	}
	if status == 0 {
		return "network_error"
	}
	return fmt.Sprintf("http_%d", status)
}
