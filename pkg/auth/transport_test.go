package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// countingSource tracks refresh invocations.
type countingSource struct {
	token    atomic.Value
	refreshn atomic.Int64
	fail     bool
}

func newCountingSource(initial string) *countingSource {
	s := &countingSource{}
	s.token.Store(initial)
	return s
}

func (s *countingSource) Token(ctx context.Context) (string, error) {
	return s.token.Load().(string), nil
}

func (s *countingSource) Refresh(ctx context.Context) (string, error) {
	s.refreshn.Add(1)
	if s.fail {
		return "", errors.New("refresh rejected")
	}
	s.token.Store("fresh-token")
	return "fresh-token", nil
}

func TestTransportAttachesBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(newCountingSource("tok-1"), nil)}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-1")
	}
}

func TestTransportRefreshesOnceOn401(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	source := newCountingSource("stale-token")
	client := &http.Client{Transport: NewTransport(source, nil)}

	req, _ := http.NewRequest(http.MethodPost, srv.URL, bytes.NewReader([]byte("payload")))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "payload" {
		t.Errorf("replayed body = %q, want %q", body, "payload")
	}
	if got := source.refreshn.Load(); got != 1 {
		t.Errorf("refresh count = %d, want 1", got)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d requests, want 2", got)
	}
}

func TestTransportSecond401IsTerminal(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	source := newCountingSource("stale-token")
	client := &http.Client{Transport: NewTransport(source, nil)}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want terminal 401", resp.StatusCode)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d requests, want exactly 2 (no refresh loop)", got)
	}
	if got := source.refreshn.Load(); got != 1 {
		t.Errorf("refresh count = %d, want 1", got)
	}
}

func TestTransportRefreshFailureReturns401(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	source := newCountingSource("stale-token")
	source.fail = true
	client := &http.Client{Transport: NewTransport(source, nil)}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (no replay without a token)", got)
	}
}

func TestRefreshSource(t *testing.T) {
	var n int
	source := NewRefreshSource("", func(ctx context.Context) (string, error) {
		n++
		return "minted", nil
	})

	// Empty initial token forces a refresh on first use.
	tok, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "minted" || n != 1 {
		t.Errorf("tok = %q, refreshes = %d", tok, n)
	}

	// Subsequent use returns the cached token.
	source.Token(context.Background())
	if n != 1 {
		t.Errorf("refreshes = %d, want 1", n)
	}
}

func TestStaticTokenSource(t *testing.T) {
	if _, err := NewStaticTokenSource("").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}

	tok, err := NewStaticTokenSource("t").Refresh(context.Background())
	if err != nil || tok != "t" {
		t.Errorf("Refresh = %q, %v", tok, err)
	}
}
