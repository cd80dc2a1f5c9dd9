package devserver

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned for unknown or expired access tokens.
var ErrInvalidToken = errors.New("devserver: invalid or expired token")

// ErrInvalidRefreshToken is returned for unknown refresh tokens.
var ErrInvalidRefreshToken = errors.New("devserver: invalid refresh token")

type issuedToken struct {
	username  string
	expiresAt time.Time
}

// TokenIssuer hands out short-lived bearer tokens with long-lived refresh
// tokens. Access tokens expire on purpose so clients exercise their 401
// recovery path against this server.
type TokenIssuer struct {
	ttl time.Duration

	mu      sync.Mutex
	access  map[string]issuedToken
	refresh map[string]string // refresh token -> username
	now     func() time.Time
}

// NewTokenIssuer creates an issuer whose access tokens live for ttl.
func NewTokenIssuer(ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		ttl:     ttl,
		access:  make(map[string]issuedToken),
		refresh: make(map[string]string),
		now:     time.Now,
	}
}

// Credentials is an issued access/refresh token pair.
type Credentials struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Issue creates a fresh credential pair for username.
func (t *TokenIssuer) Issue(username string) Credentials {
	t.mu.Lock()
	defer t.mu.Unlock()

	access := uuid.NewString()
	refresh := uuid.NewString()
	t.access[access] = issuedToken{username: username, expiresAt: t.now().Add(t.ttl)}
	t.refresh[refresh] = username
	return Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(t.ttl.Seconds()),
	}
}

// Authenticate resolves an access token to its username.
func (t *TokenIssuer) Authenticate(token string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	issued, ok := t.access[token]
	if !ok {
		return "", ErrInvalidToken
	}
	if t.now().After(issued.expiresAt) {
		delete(t.access, token)
		return "", ErrInvalidToken
	}
	return issued.username, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token stays valid; only access tokens rotate.
func (t *TokenIssuer) Refresh(refreshToken string) (Credentials, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	username, ok := t.refresh[refreshToken]
	if !ok {
		return Credentials{}, ErrInvalidRefreshToken
	}

	access := uuid.NewString()
	t.access[access] = issuedToken{username: username, expiresAt: t.now().Add(t.ttl)}
	return Credentials{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int(t.ttl.Seconds()),
	}, nil
}

// Revoke invalidates an access token immediately.
func (t *TokenIssuer) Revoke(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.access, token)
}
