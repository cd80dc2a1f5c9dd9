package engine

import (
	"sync"

	"github.com/gathersync-dev/gathersync/pkg/feed"
)

// Guard is the process-wide set of posts with an unresolved like toggle.
// It suppresses duplicate taps: a toggle for a post already in the set is
// dropped before any state change or network call.
//
// One Guard is shared by every engine in the process so that two views of the
// same event cannot double-count a post.
type Guard struct {
	mu  sync.Mutex
	ids map[feed.PostID]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{ids: make(map[feed.PostID]struct{})}
}

// TryAcquire marks id as in flight. It returns false if id already is,
// in which case the caller must drop the mutation.
func (g *Guard) TryAcquire(id feed.PostID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.ids[id]; busy {
		return false
	}
	g.ids[id] = struct{}{}
	return true
}

// Release removes id from the in-flight set. Safe to call for an id that is
// not present.
func (g *Guard) Release(id feed.PostID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ids, id)
}

// InFlight reports whether id currently has an unresolved toggle.
func (g *Guard) InFlight(id feed.PostID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.ids[id]
	return busy
}
