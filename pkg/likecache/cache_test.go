package likecache

import (
	"context"
	"testing"

	"github.com/gathersync-dev/gathersync/pkg/feed"
)

func TestCachePutGet(t *testing.T) {
	ctx := context.Background()
	cache := New(NewMemoryStore())
	defer cache.Close()

	if err := cache.Put(ctx, "e1", 512, Entry{LikeCount: 3, Liked: true}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries, err := cache.Get(ctx, "e1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := entries[512]; got.LikeCount != 3 || !got.Liked {
		t.Errorf("entry = %+v, want {3 true}", got)
	}

	// Other events are independent.
	entries, err = cache.Get(ctx, "e2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty cache for e2, got %v", entries)
	}
}

func TestCachePutFloorsNegativeCount(t *testing.T) {
	ctx := context.Background()
	cache := New(NewMemoryStore())
	defer cache.Close()

	if err := cache.Put(ctx, "e1", 7, Entry{LikeCount: -1, Liked: false}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries, _ := cache.Get(ctx, "e1")
	if entries[7].LikeCount != 0 {
		t.Errorf("count = %d, want 0", entries[7].LikeCount)
	}
}

func TestMergeInto(t *testing.T) {
	ctx := context.Background()

	t.Run("CacheWinsOnGreaterCount", func(t *testing.T) {
		cache := New(NewMemoryStore())
		defer cache.Close()
		cache.Put(ctx, "e1", 512, Entry{LikeCount: 7, Liked: true})

		merged, err := cache.MergeInto(ctx, "e1", []feed.Post{{ID: 512, LikeCount: 4}})
		if err != nil {
			t.Fatalf("MergeInto failed: %v", err)
		}
		if merged[0].LikeCount != 7 || !merged[0].LikedByViewer {
			t.Errorf("merged = %+v, want count 7 liked", merged[0])
		}
	})

	t.Run("FetchWinsOnEqualOrGreater", func(t *testing.T) {
		cache := New(NewMemoryStore())
		defer cache.Close()
		cache.Put(ctx, "e1", 512, Entry{LikeCount: 2, Liked: true})

		merged, err := cache.MergeInto(ctx, "e1", []feed.Post{{ID: 512, LikeCount: 5, LikedByViewer: false}})
		if err != nil {
			t.Fatalf("MergeInto failed: %v", err)
		}
		if merged[0].LikeCount != 5 || merged[0].LikedByViewer {
			t.Errorf("merged = %+v, want fetched values", merged[0])
		}

		// The cache must have been refreshed to the fetched values.
		entries, _ := cache.Get(ctx, "e1")
		if got := entries[512]; got.LikeCount != 5 || got.Liked {
			t.Errorf("cache entry = %+v, want {5 false}", got)
		}
	})

	t.Run("MissingEntryPassesThrough", func(t *testing.T) {
		cache := New(NewMemoryStore())
		defer cache.Close()

		posts := []feed.Post{{ID: 1, LikeCount: 9}}
		merged, err := cache.MergeInto(ctx, "e1", posts)
		if err != nil {
			t.Fatalf("MergeInto failed: %v", err)
		}
		if merged[0].LikeCount != 9 {
			t.Errorf("merged = %+v, want untouched", merged[0])
		}

		// Pass-through must not create entries.
		entries, _ := cache.Get(ctx, "e1")
		if len(entries) != 0 {
			t.Errorf("expected no entries, got %v", entries)
		}
	})

	t.Run("AppliesToReplies", func(t *testing.T) {
		cache := New(NewMemoryStore())
		defer cache.Close()
		cache.Put(ctx, "e1", 31, Entry{LikeCount: 2, Liked: true})

		posts := []feed.Post{{ID: 3, Replies: []feed.Post{{ID: 31, LikeCount: 0}}}}
		merged, err := cache.MergeInto(ctx, "e1", posts)
		if err != nil {
			t.Fatalf("MergeInto failed: %v", err)
		}
		if got := merged[0].Replies[0]; got.LikeCount != 2 || !got.LikedByViewer {
			t.Errorf("reply = %+v, want cached values", got)
		}
	})
}

func TestCacheSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	cache := New(store)
	if err := cache.Put(ctx, "e1", 512, Entry{LikeCount: 1, Liked: true}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	cache.Close()

	// A fresh Cache over the same directory sees the entry.
	store2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	cache2 := New(store2)
	defer cache2.Close()

	entries, err := cache2.Get(ctx, "e1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := entries[512]; got.LikeCount != 1 || !got.Liked {
		t.Errorf("entry after restart = %+v, want {1 true}", got)
	}
}

func TestBlobWireFormat(t *testing.T) {
	data, err := encodeBlob(map[feed.PostID]Entry{512: {LikeCount: 1, Liked: true}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(data) != `{"512":{"likes":1,"isLiked":true}}` {
		t.Errorf("blob = %s", data)
	}

	entries, err := decodeBlob(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got := entries[512]; got.LikeCount != 1 || !got.Liked {
		t.Errorf("decoded = %+v", got)
	}

	if _, err := decodeBlob([]byte(`{"not-a-number":{}}`)); err == nil {
		t.Error("expected error for malformed post id")
	}
}
