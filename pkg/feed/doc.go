// Package feed defines the post tree model for an event's interaction feed
// and the pure merge primitives every mutation is expressed with.
//
// A feed is a two-level tree: top-level posts and their direct replies.
// Deeper nesting is structurally permitted but never produced by the backend.
//
// The tree functions (FindAndUpdate, InsertReply, Remove) are copy-on-write:
// they return a new slice with the change applied and leave every untouched
// sibling structurally identical to the input, so view diffing stays cheap.
//
// Post ids are either server ids (stable, assigned by the backend) or
// placeholder ids drawn from a reserved range that is disjoint from server
// ids. Placeholders exist only between an optimistic insert and the create
// call resolving:
//
//	id := feed.NewPlaceholderID()
//	posts = feed.InsertReply(posts, parentID, feed.Post{ID: id, Text: text})
//	// ... on confirmation:
//	posts = feed.FindAndUpdate(posts, id, func(p feed.Post) feed.Post {
//	    p.ID = serverID
//	    return p
//	})
package feed
