package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/feed"
	"github.com/gathersync-dev/gathersync/pkg/likecache"
	"github.com/gathersync-dev/gathersync/pkg/metrics"
)

// Backend is the slice of the api client the engine mutates through.
type Backend interface {
	CreateComment(ctx context.Context, req api.CommentRequest) (feed.Post, error)
	ToggleLike(ctx context.Context, req api.LikeRequest) (api.LikeResult, error)
}

// FeedSource delivers reconciled snapshots; used for refresh and for the
// re-fetch recovery after a failed like toggle.
type FeedSource interface {
	SyncFeed(ctx context.Context, eventID, viewerID string) (feed.EventInteractions, error)
}

// ErrClosed is returned by mutations submitted after Close.
var ErrClosed = errors.New("engine: closed")

// ErrToggleInFlight is returned when a like toggle is dropped because the
// post already has one unresolved. The caller may ignore it; no state
// changed and no request was issued.
var ErrToggleInFlight = errors.New("engine: toggle already in flight")

// Config assembles an Engine. EventID, Viewer, Backend, and Source are
// required; everything else has a usable zero value.
type Config struct {
	// EventID scopes all mutations and fetches.
	EventID string

	// Viewer is the acting username, sent with every mutation.
	Viewer string

	Backend Backend
	Source  FeedSource

	// Cache receives every optimistic toggle and every authoritative
	// confirmation. May be nil (state then lives only in memory).
	Cache *likecache.Cache

	// Guard is the process-wide duplicate-tap guard. Share one instance
	// across engines; nil creates a private one.
	Guard *Guard

	// Listener receives UI callbacks. May be nil or set later via Attach.
	Listener Listener

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Engine owns the interaction state for one event and serializes every state
// transition through its dispatch loop.
type Engine struct {
	eventID string
	viewer  string
	backend Backend
	source  FeedSource
	cache   *likecache.Cache
	guard   *Guard
	metrics *metrics.Metrics
	logger  *slog.Logger

	// Owned by the dispatch goroutine.
	state    feed.EventInteractions
	listener Listener

	dispatchCh chan func()
	done       chan struct{}
}

// New creates an Engine and starts its dispatch loop.
func New(cfg Config) *Engine {
	if cfg.Guard == nil {
		cfg.Guard = NewGuard()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Engine{
		eventID:    cfg.EventID,
		viewer:     cfg.Viewer,
		backend:    cfg.Backend,
		source:     cfg.Source,
		cache:      cfg.Cache,
		guard:      cfg.Guard,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With("component", "engine", "event", cfg.EventID),
		listener:   cfg.Listener,
		dispatchCh: make(chan func(), 64),
		done:       make(chan struct{}),
	}

	go e.loop()
	return e
}

// loop runs queued transitions until Close.
func (e *Engine) loop() {
	for {
		select {
		case fn := <-e.dispatchCh:
			fn()
		case <-e.done:
			return
		}
	}
}

// dispatch queues fn onto the loop. Returns false after Close.
func (e *Engine) dispatch(fn func()) bool {
	select {
	case <-e.done:
		return false
	case e.dispatchCh <- fn:
		return true
	}
}

// dispatchWait queues fn and blocks until it ran. Returns ErrClosed after
// Close.
func (e *Engine) dispatchWait(fn func()) error {
	ran := make(chan struct{})
	ok := e.dispatch(func() {
		fn()
		close(ran)
	})
	if !ok {
		return ErrClosed
	}

	select {
	case <-ran:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// Close stops the dispatch loop. In-flight network calls are allowed to
// finish; their completions become no-ops.
func (e *Engine) Close() {
	select {
	case <-e.done:
	default:
		close(e.done)
	}
}

// Attach installs (or replaces) the listener and immediately replays the
// current snapshot to it.
func (e *Engine) Attach(l Listener) {
	e.dispatch(func() {
		e.listener = l
		e.notify()
	})
}

// Detach disconnects the current listener. Pending completions still update
// cache and state; UI callbacks become no-ops.
func (e *Engine) Detach() {
	e.dispatch(func() {
		e.listener = nil
	})
}

// Snapshot returns a point-in-time copy of the engine's state.
func (e *Engine) Snapshot() feed.EventInteractions {
	var snapshot feed.EventInteractions
	e.dispatchWait(func() {
		snapshot = e.state
	})
	return snapshot
}

// Refresh fetches the reconciled canonical snapshot and replaces local state.
// A fetch failure surfaces to the listener and leaves the displayed snapshot
// untouched.
func (e *Engine) Refresh(ctx context.Context) {
	go func() {
		snapshot, err := e.source.SyncFeed(ctx, e.eventID, e.viewer)
		e.dispatch(func() {
			if err != nil {
				e.logger.Warn("refresh failed", "error", err)
				e.surface(err)
				return
			}
			e.state = snapshot
			e.notify()
		})
	}()
}

// notify replays the current snapshot to the listener, if one is attached.
func (e *Engine) notify() {
	if e.listener != nil {
		e.listener.FeedUpdated(e.state)
	}
}

// surface reports a recoverable error to the listener, if one is attached.
func (e *Engine) surface(err error) {
	if e.listener != nil {
		e.listener.ErrorSurfaced(err)
	}
}

// now is a split point for tests.
var now = time.Now
