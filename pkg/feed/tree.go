package feed

// FindAndUpdate returns a new tree with fn applied to the post carrying id,
// wherever it sits in the two-level tree. Untouched siblings are returned
// as-is; if id is not found the input slice is returned unchanged.
func FindAndUpdate(posts []Post, id PostID, fn func(Post) Post) []Post {
	out, _ := findAndUpdate(posts, id, fn)
	return out
}

func findAndUpdate(posts []Post, id PostID, fn func(Post) Post) ([]Post, bool) {
	for i := range posts {
		if posts[i].ID == id {
			out := make([]Post, len(posts))
			copy(out, posts)
			out[i] = fn(out[i])
			return out, true
		}
		if replies, ok := findAndUpdate(posts[i].Replies, id, fn); ok {
			out := make([]Post, len(posts))
			copy(out, posts)
			out[i].Replies = replies
			return out, true
		}
	}
	return posts, false
}

// InsertReply returns a new tree with reply appended to the reply sequence of
// the post carrying parentID. The input is returned unchanged if parentID is
// not found.
func InsertReply(posts []Post, parentID PostID, reply Post) []Post {
	out, _ := insertReply(posts, parentID, reply)
	return out
}

func insertReply(posts []Post, parentID PostID, reply Post) ([]Post, bool) {
	for i := range posts {
		if posts[i].ID == parentID {
			out := make([]Post, len(posts))
			copy(out, posts)
			replies := make([]Post, len(out[i].Replies), len(out[i].Replies)+1)
			copy(replies, out[i].Replies)
			out[i].Replies = append(replies, reply)
			return out, true
		}
		if replies, ok := insertReply(posts[i].Replies, parentID, reply); ok {
			out := make([]Post, len(posts))
			copy(out, posts)
			out[i].Replies = replies
			return out, true
		}
	}
	return posts, false
}

// Remove returns a new tree without the post carrying id. Used to roll back a
// failed optimistic creation. The input is returned unchanged if id is not
// found.
func Remove(posts []Post, id PostID) []Post {
	out, _ := remove(posts, id)
	return out
}

func remove(posts []Post, id PostID) ([]Post, bool) {
	for i := range posts {
		if posts[i].ID == id {
			out := make([]Post, 0, len(posts)-1)
			out = append(out, posts[:i]...)
			out = append(out, posts[i+1:]...)
			return out, true
		}
		if replies, ok := remove(posts[i].Replies, id); ok {
			out := make([]Post, len(posts))
			copy(out, posts)
			out[i].Replies = replies
			return out, true
		}
	}
	return posts, false
}

// Find returns the post carrying id, searching the full tree.
func Find(posts []Post, id PostID) (Post, bool) {
	for i := range posts {
		if posts[i].ID == id {
			return posts[i], true
		}
		if p, ok := Find(posts[i].Replies, id); ok {
			return p, true
		}
	}
	return Post{}, false
}
