package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gathersync-dev/gathersync/pkg/feed"
	"github.com/gathersync-dev/gathersync/pkg/likecache"
)

func TestFetchFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/feed/e1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("current_user"); got != "alice" {
			t.Errorf("current_user = %q", got)
		}
		json.NewEncoder(w).Encode(feed.EventInteractions{
			Posts: []feed.Post{{ID: 512, Text: "hello", LikeCount: 2}},
			Likes: feed.LikeSummary{Total: 2},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	got, err := client.FetchFeed(context.Background(), "e1", "alice")
	if err != nil {
		t.Fatalf("FetchFeed failed: %v", err)
	}
	if len(got.Posts) != 1 || got.Posts[0].ID != 512 || got.Posts[0].LikeCount != 2 {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestCreateComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Username != "alice" || req.EventID != "e1" || req.Text != "hi" {
			t.Errorf("request = %+v", req)
		}
		if req.ParentID == nil || *req.ParentID != 7 {
			t.Errorf("parent_id = %v, want 7", req.ParentID)
		}
		json.NewEncoder(w).Encode(map[string]feed.Post{
			"post": {ID: 512, Text: "hi", AuthorID: "alice"},
		})
	}))
	defer srv.Close()

	parent := feed.PostID(7)
	client := NewClient(srv.URL)
	post, err := client.CreateComment(context.Background(), CommentRequest{
		Username: "alice",
		EventID:  "e1",
		Text:     "hi",
		ParentID: &parent,
	})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if post.ID != 512 {
		t.Errorf("post id = %d, want 512", post.ID)
	}
}

func TestToggleLike(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(LikeResult{Success: true, Liked: true, TotalLikes: 3})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	res, err := client.ToggleLike(context.Background(), LikeRequest{Username: "bob", EventID: "e1", PostID: 512})
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if !res.Liked || res.TotalLikes != 3 {
		t.Errorf("result = %+v", res)
	}
}

func TestErrorClassification(t *testing.T) {
	t.Run("Network", func(t *testing.T) {
		// A server that is already closed refuses connections.
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client := NewClient(srv.URL)
		_, err := client.FetchFeed(context.Background(), "e1", "alice")

		var ne *NetworkError
		if !errors.As(err, &ne) {
			t.Fatalf("err = %v, want NetworkError", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
		_, err := client.FetchFeed(context.Background(), "e1", "alice")

		var ne *NetworkError
		if !errors.As(err, &ne) {
			t.Fatalf("timeout err = %v, want NetworkError", err)
		}
	})

	t.Run("Auth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		_, err := client.ToggleLike(context.Background(), LikeRequest{PostID: 1})

		var ae *AuthError
		if !errors.As(err, &ae) {
			t.Fatalf("err = %v, want AuthError", err)
		}
	})

	t.Run("Server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "upstream down"})
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		_, err := client.FetchFeed(context.Background(), "e1", "alice")

		var se *ServerError
		if !errors.As(err, &se) {
			t.Fatalf("err = %v, want ServerError", err)
		}
		if se.Status != http.StatusBadGateway || se.Message != "upstream down" {
			t.Errorf("ServerError = %+v", se)
		}
	})

	t.Run("Decode", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		_, err := client.FetchFeed(context.Background(), "e1", "alice")

		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("err = %v, want DecodeError", err)
		}
	})

	t.Run("UnsuccessfulLike", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(LikeResult{Success: false})
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		_, err := client.ToggleLike(context.Background(), LikeRequest{PostID: 1})

		var se *ServerError
		if !errors.As(err, &se) {
			t.Fatalf("err = %v, want ServerError", err)
		}
	})
}

func TestSyncFeedMergesCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(feed.EventInteractions{
			Posts: []feed.Post{{ID: 512, LikeCount: 0}},
		})
	}))
	defer srv.Close()

	ctx := context.Background()
	cache := likecache.New(likecache.NewMemoryStore())
	defer cache.Close()
	cache.Put(ctx, "e1", 512, likecache.Entry{LikeCount: 1, Liked: true})

	syncer := NewSyncer(NewClient(srv.URL), cache)
	got, err := syncer.SyncFeed(ctx, "e1", "bob")
	if err != nil {
		t.Fatalf("SyncFeed failed: %v", err)
	}
	if got.Posts[0].LikeCount != 1 || !got.Posts[0].LikedByViewer {
		t.Errorf("merged = %+v, want cache to win over stale fetch", got.Posts[0])
	}
}

func TestSyncFeedNilCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(feed.EventInteractions{
			Posts: []feed.Post{{ID: 1, LikeCount: 4}},
		})
	}))
	defer srv.Close()

	syncer := NewSyncer(NewClient(srv.URL), nil)
	got, err := syncer.SyncFeed(context.Background(), "e1", "bob")
	if err != nil {
		t.Fatalf("SyncFeed failed: %v", err)
	}
	if got.Posts[0].LikeCount != 4 {
		t.Errorf("snapshot = %+v", got.Posts[0])
	}
}
