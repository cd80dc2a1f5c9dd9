package auth

import (
	"fmt"
	"log/slog"
	"net/http"
)

// Transport is an http.RoundTripper that attaches bearer credentials and
// retries a rejected request exactly once after refreshing the token.
//
// Requests with a body must have GetBody set (true for all requests built
// with http.NewRequest from a byte reader) or the replay is skipped and the
// 401 response is returned as-is.
type Transport struct {
	source TokenSource
	base   http.RoundTripper
	logger *slog.Logger
}

// NewTransport creates a Transport over base. A nil base uses
// http.DefaultTransport.
func NewTransport(source TokenSource, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		source: source,
		base:   base,
		logger: slog.Default().With("component", "auth"),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := t.source.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: token: %w", err)
	}

	resp, err := t.base.RoundTrip(withBearer(req, token))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// One refresh, one replay. A second 401 is terminal.
	retry, err := rewind(req)
	if err != nil {
		t.logger.Warn("cannot replay request after 401", "error", err)
		return resp, nil
	}

	token, err = t.source.Refresh(ctx)
	if err != nil {
		t.logger.Warn("token refresh failed", "error", err)
		return resp, nil
	}
	resp.Body.Close()

	t.logger.Debug("retrying request with refreshed token",
		"method", req.Method,
		"url", req.URL.Path)
	return t.base.RoundTrip(withBearer(retry, token))
}

// withBearer returns a shallow clone of req with the Authorization header set.
// The original request is never mutated, per the RoundTripper contract.
func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

// rewind produces a replayable copy of req, re-winding the body via GetBody.
func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("auth: request body is not replayable")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("auth: rewind body: %w", err)
	}
	out.Body = body
	return out, nil
}
