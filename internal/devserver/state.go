package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/gathersync-dev/gathersync/pkg/feed"
)

// eventState holds one event's posts and per-user like sets. The canonical
// tree stores no viewer-dependent fields; Feed derives them per request.
type eventState struct {
	posts []feed.Post
	likes map[feed.PostID]map[string]bool
}

// StateStore is the server's in-memory database of events.
type StateStore struct {
	mu     sync.Mutex
	events map[string]*eventState
	nextID feed.PostID
}

// NewStateStore creates an empty store. Post ids start at 1.
func NewStateStore() *StateStore {
	return &StateStore{
		events: make(map[string]*eventState),
		nextID: 1,
	}
}

func (s *StateStore) event(eventID string) *eventState {
	st, ok := s.events[eventID]
	if !ok {
		st = &eventState{likes: make(map[feed.PostID]map[string]bool)}
		s.events[eventID] = st
	}
	return st
}

// Feed returns the event's interaction snapshot with like counts and the
// viewer's like flags filled in.
func (s *StateStore) Feed(eventID, viewer string) feed.EventInteractions {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.event(eventID)
	return feed.EventInteractions{
		Posts:  s.decorate(st, st.posts, viewer),
		Likes:  s.likeSummary(st),
		Shares: feed.ShareSummary{},
	}
}

func (s *StateStore) decorate(st *eventState, posts []feed.Post, viewer string) []feed.Post {
	out := make([]feed.Post, len(posts))
	for i, p := range posts {
		likers := st.likes[p.ID]
		p.LikeCount = len(likers)
		p.LikedByViewer = viewer != "" && likers[viewer]
		p.Replies = s.decorate(st, p.Replies, viewer)
		out[i] = p
	}
	return out
}

func (s *StateStore) likeSummary(st *eventState) feed.LikeSummary {
	users := make(map[string]bool)
	total := 0
	for _, likers := range st.likes {
		for u := range likers {
			users[u] = true
			total++
		}
	}
	ids := make([]string, 0, len(users))
	for u := range users {
		ids = append(ids, u)
	}
	sort.Strings(ids)
	return feed.LikeSummary{Total: total, UserIDs: ids}
}

// AddComment appends a post, either top-level or under parentID. It returns
// the stored post with its assigned id, or false when the parent does not
// exist.
func (s *StateStore) AddComment(eventID, username, text string, imageURLs []string, parentID *feed.PostID) (feed.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.event(eventID)
	post := feed.Post{
		ID:        s.nextID,
		Text:      text,
		AuthorID:  username,
		CreatedAt: time.Now().UTC(),
		ImageURLs: imageURLs,
	}

	if parentID == nil {
		st.posts = append(st.posts, post)
	} else {
		var placed bool
		st.posts, placed = appendReply(st.posts, *parentID, post)
		if !placed {
			return feed.Post{}, false
		}
	}

	s.nextID++
	return post, true
}

func appendReply(posts []feed.Post, parentID feed.PostID, reply feed.Post) ([]feed.Post, bool) {
	for i := range posts {
		if posts[i].ID == parentID {
			posts[i].Replies = append(posts[i].Replies, reply)
			return posts, true
		}
		if replies, ok := appendReply(posts[i].Replies, parentID, reply); ok {
			posts[i].Replies = replies
			return posts, true
		}
	}
	return posts, false
}

// ToggleLike flips username's like on postID. It reports the user's new
// like state, the post's total, and whether the post exists.
func (s *StateStore) ToggleLike(eventID, username string, postID feed.PostID) (liked bool, total int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.event(eventID)
	if _, found := feed.Find(st.posts, postID); !found {
		return false, 0, false
	}

	likers := st.likes[postID]
	if likers == nil {
		likers = make(map[string]bool)
		st.likes[postID] = likers
	}

	if likers[username] {
		delete(likers, username)
	} else {
		likers[username] = true
	}
	return likers[username], len(likers), true
}
