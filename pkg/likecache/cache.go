package likecache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/gathersync-dev/gathersync/pkg/feed"
)

// Entry is the last known like state for a single post.
type Entry struct {
	LikeCount int  `json:"likes"`
	Liked     bool `json:"isLiked"`
}

// Cache is the process-wide repository of like state, backed by a Store.
// It is safe for concurrent use; writes for different posts never contend on
// anything but the per-event blob.
type Cache struct {
	store   Store
	onMerge func(winner string)

	mu     sync.Mutex
	events map[string]map[feed.PostID]Entry // loaded blobs by event
}

// Option configures a Cache.
type Option func(*Cache)

// WithMergeObserver registers a callback invoked once per post during
// MergeInto with the winning side, "cache" or "fetch". Used to feed metrics
// without coupling this package to a metrics backend.
func WithMergeObserver(fn func(winner string)) Option {
	return func(c *Cache) {
		c.onMerge = fn
	}
}

// New creates a Cache on top of a Store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		events: make(map[string]map[feed.PostID]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached entries for an event. The returned map is a copy.
func (c *Cache) Get(ctx context.Context, eventID string) (map[feed.PostID]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.loadLocked(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := make(map[feed.PostID]Entry, len(entries))
	for id, e := range entries {
		out[id] = e
	}
	return out, nil
}

// Put records the like state for a post and persists it before returning.
// Counts below zero are floored at zero.
func (c *Cache) Put(ctx context.Context, eventID string, postID feed.PostID, entry Entry) error {
	if entry.LikeCount < 0 {
		entry.LikeCount = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.loadLocked(ctx, eventID)
	if err != nil {
		return err
	}

	entries[postID] = entry
	return c.saveLocked(ctx, eventID, entries)
}

// MergeInto reconciles a freshly fetched post tree with the cache and returns
// the merged tree. For each post: a cached count strictly greater than the
// fetched one wins (the fetch is stale relative to a recent local action);
// otherwise the fetched values win and the cache is refreshed to match.
func (c *Cache) MergeInto(ctx context.Context, eventID string, posts []feed.Post) ([]feed.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.loadLocked(ctx, eventID)
	if err != nil {
		return posts, err
	}

	dirty := false
	merged := mergeTree(posts, entries, c.onMerge, &dirty)

	if dirty {
		if err := c.saveLocked(ctx, eventID, entries); err != nil {
			return merged, err
		}
	}
	return merged, nil
}

// mergeTree applies the never-regress rule over posts and their replies.
// entries is refreshed in place with fetched values that won; dirty is set
// when a refresh happened.
func mergeTree(posts []feed.Post, entries map[feed.PostID]Entry, onMerge func(string), dirty *bool) []feed.Post {
	if len(posts) == 0 {
		return posts
	}

	out := make([]feed.Post, len(posts))
	copy(out, posts)

	for i := range out {
		if cached, ok := entries[out[i].ID]; ok && cached.LikeCount > out[i].LikeCount {
			out[i].LikeCount = cached.LikeCount
			out[i].LikedByViewer = cached.Liked
			if onMerge != nil {
				onMerge("cache")
			}
		} else if ok {
			if cached.LikeCount != out[i].LikeCount || cached.Liked != out[i].LikedByViewer {
				entries[out[i].ID] = Entry{LikeCount: out[i].LikeCount, Liked: out[i].LikedByViewer}
				*dirty = true
			}
			if onMerge != nil {
				onMerge("fetch")
			}
		}
		out[i].Replies = mergeTree(out[i].Replies, entries, onMerge, dirty)
	}
	return out
}

// loadLocked returns the entry map for an event, reading the blob from the
// store on first access. Caller holds c.mu.
func (c *Cache) loadLocked(ctx context.Context, eventID string) (map[feed.PostID]Entry, error) {
	if entries, ok := c.events[eventID]; ok {
		return entries, nil
	}

	data, err := c.store.Load(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("likecache: load %q: %w", eventID, err)
	}

	entries, err := decodeBlob(data)
	if err != nil {
		return nil, fmt.Errorf("likecache: decode %q: %w", eventID, err)
	}

	c.events[eventID] = entries
	return entries, nil
}

// saveLocked persists the entry map for an event. Caller holds c.mu.
func (c *Cache) saveLocked(ctx context.Context, eventID string, entries map[feed.PostID]Entry) error {
	data, err := encodeBlob(entries)
	if err != nil {
		return fmt.Errorf("likecache: encode %q: %w", eventID, err)
	}
	if err := c.store.Save(ctx, eventID, data); err != nil {
		return fmt.Errorf("likecache: save %q: %w", eventID, err)
	}
	return nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// encodeBlob serializes entries to the persisted wire format: a JSON object
// keyed by the post id rendered as a string.
func encodeBlob(entries map[feed.PostID]Entry) ([]byte, error) {
	blob := make(map[string]Entry, len(entries))
	for id, e := range entries {
		blob[strconv.FormatInt(int64(id), 10)] = e
	}
	return json.Marshal(blob)
}

// decodeBlob parses the persisted wire format. A nil blob decodes to an
// empty map.
func decodeBlob(data []byte) (map[feed.PostID]Entry, error) {
	entries := make(map[feed.PostID]Entry)
	if len(data) == 0 {
		return entries, nil
	}

	var blob map[string]Entry
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, err
	}
	for key, e := range blob {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad post id %q: %w", key, err)
		}
		entries[feed.PostID(id)] = e
	}
	return entries, nil
}
