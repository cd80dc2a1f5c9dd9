package engine

import (
	"context"

	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/feed"
	"github.com/gathersync-dev/gathersync/pkg/likecache"
)

// ToggleLike flips the viewer's like on a post: the count and flag change
// locally before any network round-trip, then the server's authoritative
// values overwrite the local guess.
//
// A toggle for a post that already has one unresolved is dropped and returns
// ErrToggleInFlight with no state change and no request. On failure the canonical
// feed is re-fetched instead of reversing the delta, since a failed call
// leaves the true state unknown.
func (e *Engine) ToggleLike(ctx context.Context, postID feed.PostID) error {
	if !e.guard.TryAcquire(postID) {
		e.metrics.RecordMutation("toggle_like", "suppressed")
		return ErrToggleInFlight
	}

	var found bool
	err := e.dispatchWait(func() {
		var optimistic feed.Post
		e.state.Posts = feed.FindAndUpdate(e.state.Posts, postID, func(p feed.Post) feed.Post {
			found = true
			if p.LikedByViewer {
				p.LikedByViewer = false
				p.LikeCount--
				if p.LikeCount < 0 {
					p.LikeCount = 0
				}
			} else {
				p.LikedByViewer = true
				p.LikeCount++
			}
			optimistic = p
			return p
		})
		if !found {
			return
		}

		if e.cache != nil {
			if err := e.cache.Put(ctx, e.eventID, postID, likecache.Entry{
				LikeCount: optimistic.LikeCount,
				Liked:     optimistic.LikedByViewer,
			}); err != nil {
				e.logger.Warn("cache write failed", "post", int64(postID), "error", err)
			}
		}
		e.notify()
	})
	if err != nil {
		e.guard.Release(postID)
		return err
	}
	if !found {
		e.guard.Release(postID)
		return nil
	}

	e.metrics.MutationStarted()
	go func() {
		result, err := e.backend.ToggleLike(ctx, api.LikeRequest{
			Username: e.viewer,
			EventID:  e.eventID,
			PostID:   postID,
		})

		if err != nil {
			// The true state is unknown; re-fetch rather than guess an
			// inverse delta. The fetch happens off the loop, the state swap
			// on it.
			e.logger.Warn("like toggle failed, re-fetching feed",
				"post", int64(postID), "error", err)
			snapshot, fetchErr := e.source.SyncFeed(ctx, e.eventID, e.viewer)

			ok := e.dispatch(func() {
				e.metrics.MutationFinished()
				e.metrics.RecordMutation("toggle_like", "rolled_back")
				e.guard.Release(postID)

				if fetchErr != nil {
					// Fail soft: keep the last snapshot on screen.
					e.logger.Warn("recovery fetch failed", "error", fetchErr)
					e.surface(err)
					return
				}
				e.state = snapshot
				e.notify()
				e.surface(err)
			})
			if !ok {
				// Engine closed mid-flight; the guard entry must not leak.
				e.guard.Release(postID)
				e.metrics.MutationFinished()
			}
			return
		}

		ok := e.dispatch(func() {
			e.metrics.MutationFinished()
			e.metrics.RecordMutation("toggle_like", "confirmed")
			e.guard.Release(postID)

			// Adopt the server's values, not the local guess.
			count := result.TotalLikes
			if count < 0 {
				count = 0
			}
			e.state.Posts = feed.FindAndUpdate(e.state.Posts, postID, func(p feed.Post) feed.Post {
				p.LikeCount = count
				p.LikedByViewer = result.Liked
				return p
			})

			if e.cache != nil {
				if err := e.cache.Put(ctx, e.eventID, postID, likecache.Entry{
					LikeCount: count,
					Liked:     result.Liked,
				}); err != nil {
					e.logger.Warn("cache write failed", "post", int64(postID), "error", err)
				}
			}
			e.notify()
		})
		if !ok {
			e.guard.Release(postID)
			e.metrics.MutationFinished()

			// The confirmation still reaches the persistent cache even with
			// no view listening.
			if e.cache != nil {
				count := result.TotalLikes
				if count < 0 {
					count = 0
				}
				e.cache.Put(ctx, e.eventID, postID, likecache.Entry{
					LikeCount: count,
					Liked:     result.Liked,
				})
			}
		}
	}()

	return nil
}
