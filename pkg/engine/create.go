package engine

import (
	"context"

	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/feed"
)

// CreatePost submits a new top-level post. The post appears in the local
// tree under a placeholder id before this method returns; the composer can
// clear its input immediately. On confirmation the same tree position adopts
// the server id; on failure the node is removed and the authored text is
// returned through Listener.InputRestored.
func (e *Engine) CreatePost(ctx context.Context, text string, imageURLs []string) (feed.PostID, error) {
	return e.create(ctx, nil, text, imageURLs)
}

// CreateReply submits a reply to parentID, with the same optimistic
// lifecycle as CreatePost. The reply is appended to the parent's reply
// sequence; no other post's replies are touched.
func (e *Engine) CreateReply(ctx context.Context, parentID feed.PostID, text string, imageURLs []string) (feed.PostID, error) {
	return e.create(ctx, &parentID, text, imageURLs)
}

func (e *Engine) create(ctx context.Context, parentID *feed.PostID, text string, imageURLs []string) (feed.PostID, error) {
	kind := "create_post"
	if parentID != nil {
		kind = "create_reply"
	}

	placeholder := feed.NewPlaceholderID()
	node := feed.Post{
		ID:        placeholder,
		Text:      text,
		AuthorID:  e.viewer,
		CreatedAt: now(),
		ImageURLs: imageURLs,
	}

	err := e.dispatchWait(func() {
		if parentID == nil {
			posts := make([]feed.Post, len(e.state.Posts), len(e.state.Posts)+1)
			copy(posts, e.state.Posts)
			e.state.Posts = append(posts, node)
		} else {
			e.state.Posts = feed.InsertReply(e.state.Posts, *parentID, node)
		}
		e.notify()
	})
	if err != nil {
		return 0, err
	}

	e.metrics.MutationStarted()
	go func() {
		created, err := e.backend.CreateComment(ctx, api.CommentRequest{
			Username:  e.viewer,
			EventID:   e.eventID,
			Text:      text,
			ImageURLs: imageURLs,
			ParentID:  parentID,
		})

		ok := e.dispatch(func() {
			e.metrics.MutationFinished()

			if err != nil {
				e.logger.Warn("creation failed, rolling back",
					"kind", kind,
					"placeholder", int64(placeholder),
					"error", err)
				e.metrics.RecordMutation(kind, "rolled_back")

				e.state.Posts = feed.Remove(e.state.Posts, placeholder)
				if e.listener != nil {
					e.listener.InputRestored(text)
				}
				e.notify()
				e.surface(err)
				return
			}

			e.metrics.RecordMutation(kind, "confirmed")
			e.state.Posts = feed.FindAndUpdate(e.state.Posts, placeholder, func(p feed.Post) feed.Post {
				p.ID = created.ID
				// Creation responses carry no derived like data.
				p.LikeCount = 0
				p.LikedByViewer = false
				return p
			})
			e.notify()
		})
		if !ok {
			e.metrics.MutationFinished()
		}
	}()

	return placeholder, nil
}
