package devserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/feed"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	writeJSON(w, http.StatusOK, s.tokens.Issue(req.Username))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	creds, err := s.tokens.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	viewer := r.URL.Query().Get("current_user")
	writeJSON(w, http.StatusOK, s.state.Feed(eventID, viewer))
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	var req api.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventID == "" || req.Username == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "username, event_id, and text are required")
		return
	}

	post, ok := s.state.AddComment(req.EventID, req.Username, req.Text, req.ImageURLs, req.ParentID)
	if !ok {
		writeError(w, http.StatusNotFound, "parent post not found")
		return
	}

	s.logger.Info("comment created",
		"event", req.EventID,
		"post", int64(post.ID),
		"author", req.Username)
	writeJSON(w, http.StatusCreated, map[string]feed.Post{"post": post})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	var req api.LikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventID == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "username and event_id are required")
		return
	}

	liked, total, ok := s.state.ToggleLike(req.EventID, req.Username, req.PostID)
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	writeJSON(w, http.StatusOK, api.LikeResult{
		Success:    true,
		Liked:      liked,
		TotalLikes: total,
	})
}

// handleUpload accepts a multipart form with a "file" field and returns the
// stored blob's URL for embedding in a later comment.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	const maxUpload = 10 << 20

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	url, err := s.blobs.Save(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		s.logger.Error("blob save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, chi.URLParam(r, "eventID"))
}
