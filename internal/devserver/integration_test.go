package devserver

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/engine"
	"github.com/gathersync-dev/gathersync/pkg/feed"
	"github.com/gathersync-dev/gathersync/pkg/likecache"
	"github.com/gathersync-dev/gathersync/pkg/metrics"
)

type feedRecorder struct {
	updates chan feed.EventInteractions
}

func (r *feedRecorder) FeedUpdated(s feed.EventInteractions) { r.updates <- s }
func (r *feedRecorder) InputRestored(string)                 {}
func (r *feedRecorder) ErrorSurfaced(error)                  {}

func (r *feedRecorder) next(t *testing.T) feed.EventInteractions {
	t.Helper()
	select {
	case s := <-r.updates:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a feed update")
		return feed.EventInteractions{}
	}
}

// The full optimistic lifecycle against a live backend: a post is created
// through a placeholder, liked by another user, and a later stale fetch is
// corrected from the persistent cache.
func TestEndToEndOptimisticFlow(t *testing.T) {
	ctx := context.Background()
	_, srv := startServer(t, Options{})

	registry := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(registry))

	client := api.NewClient(srv.URL, api.WithMetrics(m))
	cache := likecache.New(likecache.NewMemoryStore(),
		likecache.WithMergeObserver(m.RecordCacheMerge))
	defer cache.Close()
	syncer := api.NewSyncer(client, cache)

	listener := &feedRecorder{updates: make(chan feed.EventInteractions, 16)}
	eng := engine.New(engine.Config{
		EventID:  "e2e",
		Viewer:   "bob",
		Backend:  client,
		Source:   syncer,
		Cache:    cache,
		Listener: listener,
		Metrics:  m,
	})
	defer eng.Close()

	// The post goes through a placeholder before the server assigns the
	// real id.
	placeholder, err := eng.CreatePost(ctx, "Hello", nil)
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if !placeholder.IsPlaceholder() {
		t.Fatalf("id %d is not in the placeholder range", placeholder)
	}
	listener.next(t) // optimistic insert

	confirmed := listener.next(t)
	if len(confirmed.Posts) != 1 {
		t.Fatalf("snapshot has %d posts, want 1", len(confirmed.Posts))
	}
	postID := confirmed.Posts[0].ID
	if postID.IsPlaceholder() || postID == 0 {
		t.Fatalf("post id %d was not replaced by a server id", postID)
	}

	// Bob's like flips instantly, then the server's values confirm it.
	if err := eng.ToggleLike(ctx, postID); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}

	optimistic := listener.next(t)
	if p, _ := feed.Find(optimistic.Posts, postID); p.LikeCount != 1 || !p.LikedByViewer {
		t.Errorf("optimistic state = {%d %v}, want {1 true}", p.LikeCount, p.LikedByViewer)
	}

	settled := listener.next(t)
	if p, _ := feed.Find(settled.Posts, postID); p.LikeCount != 1 || !p.LikedByViewer {
		t.Errorf("confirmed state = {%d %v}, want {1 true}", p.LikeCount, p.LikedByViewer)
	}

	entries, err := cache.Get(ctx, "e2e")
	if err != nil {
		t.Fatal(err)
	}
	if got := entries[postID]; got.LikeCount != 1 || !got.Liked {
		t.Fatalf("cache entry = %+v, want {1 true}", got)
	}

	// A stale fetch reporting fewer likes than the cache holds is
	// corrected during reconciliation.
	if err := cache.Put(ctx, "e2e", postID, likecache.Entry{LikeCount: 3, Liked: true}); err != nil {
		t.Fatal(err)
	}
	snapshot, err := syncer.SyncFeed(ctx, "e2e", "bob")
	if err != nil {
		t.Fatalf("SyncFeed failed: %v", err)
	}
	if p, _ := feed.Find(snapshot.Posts, postID); p.LikeCount != 3 || !p.LikedByViewer {
		t.Errorf("reconciled state = {%d %v}, want cache-corrected {3 true}", p.LikeCount, p.LikedByViewer)
	}
}
