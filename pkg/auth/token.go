package auth

import (
	"context"
	"errors"
	"sync"
)

// TokenSource provides bearer tokens for outbound requests.
// Implementations must be safe for concurrent use.
type TokenSource interface {
	// Token returns the current access token.
	Token(ctx context.Context) (string, error)

	// Refresh obtains a fresh access token, invalidating the old one.
	// Called at most once per failed request, by the Transport.
	Refresh(ctx context.Context) (string, error)
}

// ErrNoToken is returned by a source that has no credentials to offer.
var ErrNoToken = errors.New("auth: no token available")

// StaticTokenSource returns a fixed token and cannot refresh.
// Useful for tests and for backends with non-expiring tokens.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a source that always returns token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

// Refresh returns the same token; a static source has nothing to refresh.
func (s *StaticTokenSource) Refresh(ctx context.Context) (string, error) {
	return s.Token(ctx)
}

// RefreshSource wraps an injected refresh capability. The initial token may
// be empty, in which case the first use triggers a refresh.
type RefreshSource struct {
	mu      sync.Mutex
	token   string
	refresh func(ctx context.Context) (string, error)
}

// NewRefreshSource creates a source seeded with token that calls refresh to
// obtain replacements.
func NewRefreshSource(token string, refresh func(ctx context.Context) (string, error)) *RefreshSource {
	return &RefreshSource{token: token, refresh: refresh}
}

func (s *RefreshSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		return s.Refresh(ctx)
	}
	return token, nil
}

func (s *RefreshSource) Refresh(ctx context.Context) (string, error) {
	token, err := s.refresh(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}
