// Package devserver is a self-contained backend for local development: the
// feed, comment, and like endpoints, the group-chat websocket hub, image
// uploads, and a token issuer whose access tokens expire quickly enough to
// exercise client refresh handling.
package devserver

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server. Zero values get usable defaults.
type Options struct {
	// Addr is the bind address. Default "localhost:8787".
	Addr string

	// TokenTTL is the access-token lifetime. Default 1h.
	TokenTTL time.Duration

	// Blobs stores uploaded images. Default: in-process disk store under
	// BlobDir.
	Blobs BlobStore

	// BlobDir is the disk store directory when Blobs is nil.
	// Default ".gathersync/blobs".
	BlobDir string

	Logger *slog.Logger
}

// Server is the development backend.
type Server struct {
	addr   string
	logger *slog.Logger

	state  *StateStore
	tokens *TokenIssuer
	hub    *ChatHub
	blobs  BlobStore

	router     chi.Router
	httpServer *http.Server
}

// New assembles a Server. It returns an error only when the default disk
// blob store cannot create its directory.
func New(opts Options) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:8787"
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "devserver")

	var diskBlobs *DiskBlobStore
	if opts.Blobs == nil {
		dir := opts.BlobDir
		if dir == "" {
			dir = ".gathersync/blobs"
		}
		var err error
		diskBlobs, err = NewDiskBlobStore(dir, "/blobs")
		if err != nil {
			return nil, err
		}
		opts.Blobs = diskBlobs
	}

	s := &Server{
		addr:   opts.Addr,
		logger: logger,
		state:  NewStateStore(),
		tokens: NewTokenIssuer(opts.TokenTTL),
		hub:    NewChatHub(logger),
		blobs:  opts.Blobs,
	}

	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Post("/auth/login/", s.handleLogin)
	r.Post("/auth/refresh/", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireFreshToken)
		r.Get("/events/feed/{eventID}", s.handleFeed)
		r.Post("/events/comment/", s.handleComment)
		r.Post("/events/like/", s.handleLike)
		r.Post("/events/upload/", s.handleUpload)
	})

	r.Get("/ws/group_chat/{eventID}/", s.handleChat)
	r.Handle("/metrics", promhttp.Handler())

	if diskBlobs != nil {
		r.Handle("/blobs/*", http.StripPrefix("/blobs/",
			http.FileServer(http.Dir(diskBlobs.Dir()))))
	}

	s.router = r
	return s, nil
}

// Handler exposes the router, mainly for tests with httptest.Server.
func (s *Server) Handler() http.Handler { return s.router }

// Tokens exposes the issuer so the CLI can mint credentials up front.
func (s *Server) Tokens() *TokenIssuer { return s.tokens }

// State exposes the event store for seeding demo data.
func (s *Server) State() *StateStore { return s.state }

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// logRequests emits one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// requireFreshToken rejects expired or unknown bearer tokens with 401.
// Requests without an Authorization header pass through anonymously, so
// the server stays usable without a login step.
func (s *Server) requireFreshToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			writeError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}

		if _, err := s.tokens.Authenticate(header[len(prefix):]); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
