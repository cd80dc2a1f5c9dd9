package api

import (
	"context"

	"github.com/gathersync-dev/gathersync/pkg/feed"
	"github.com/gathersync-dev/gathersync/pkg/likecache"
)

// Syncer pairs the client with the persistent like cache: every snapshot it
// returns has already been reconciled, so a stale fetch can never regress a
// more recent local action on screen.
type Syncer struct {
	client *Client
	cache  *likecache.Cache
}

// NewSyncer creates a Syncer. cache may be nil, in which case snapshots are
// returned unreconciled.
func NewSyncer(client *Client, cache *likecache.Cache) *Syncer {
	return &Syncer{client: client, cache: cache}
}

// SyncFeed fetches the authoritative snapshot for an event and merges it with
// the like cache before returning it.
func (s *Syncer) SyncFeed(ctx context.Context, eventID, viewerID string) (feed.EventInteractions, error) {
	snapshot, err := s.client.FetchFeed(ctx, eventID, viewerID)
	if err != nil {
		return feed.EventInteractions{}, err
	}

	if s.cache != nil {
		merged, err := s.cache.MergeInto(ctx, eventID, snapshot.Posts)
		if err != nil {
			// A cache failure must not block display of a good snapshot.
			s.client.logger.Warn("cache merge failed", "event", eventID, "error", err)
			return snapshot, nil
		}
		snapshot.Posts = merged
	}
	return snapshot, nil
}

// Cache exposes the underlying like cache for callers that confirm
// authoritative values directly (the mutation engine).
func (s *Syncer) Cache() *likecache.Cache {
	return s.cache
}
