package feed

import (
	"sync/atomic"
	"time"
)

// PostID identifies a post within an event. Server ids and placeholder ids
// share this type but occupy disjoint ranges.
type PostID int64

// placeholderBase is the first id in the reserved placeholder range.
// The backend assigns ids well below this, so the ranges never collide.
const placeholderBase PostID = 1 << 62

var placeholderCounter atomic.Int64

// NewPlaceholderID allocates a process-unique placeholder id.
// Placeholders are only ever visible locally, between an optimistic insert
// and the create call resolving.
func NewPlaceholderID() PostID {
	return placeholderBase + PostID(placeholderCounter.Add(1))
}

// IsPlaceholder reports whether the id is from the reserved placeholder range.
func (id PostID) IsPlaceholder() bool {
	return id >= placeholderBase
}

// Post is a single entry in an event feed: a top-level post or a reply.
type Post struct {
	ID            PostID    `json:"id"`
	Text          string    `json:"text"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
	ImageURLs     []string  `json:"image_urls,omitempty"`
	LikeCount     int       `json:"like_count"`
	LikedByViewer bool      `json:"liked_by_viewer"`
	Replies       []Post    `json:"replies,omitempty"`
}

// LikeSummary aggregates event-level like data.
type LikeSummary struct {
	Total   int      `json:"total"`
	UserIDs []string `json:"user_ids,omitempty"`
}

// ShareSummary aggregates event-level share data by platform.
type ShareSummary struct {
	Total      int            `json:"total"`
	ByPlatform map[string]int `json:"by_platform,omitempty"`
}

// EventInteractions is the aggregate root for one event's social state.
// It is rebuilt wholesale on every feed fetch and then reconciled with the
// local like cache before display.
type EventInteractions struct {
	Posts  []Post       `json:"posts"`
	Likes  LikeSummary  `json:"like_summary"`
	Shares ShareSummary `json:"share_summary"`
}
