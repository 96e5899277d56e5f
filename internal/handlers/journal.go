package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

type PostRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

type PostResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Post    *models.Post `json:"post,omitempty"`
}

type PostsResponse struct {
	Success bool          `json:"success"`
	Posts   []models.Post `json:"posts"`
}

// decodePost reads and validates a PostRequest, writing the error response
// itself when it fails.
func (h *Handlers) decodePost(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Content is required and must be at most 10000 characters")
		return "", false
	}
	return req.Content, true
}

// CreatePost stores a post for the authenticated user, scored on the way in.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	content, ok := h.decodePost(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	post, err := h.posts.Create(ctx, user.ID, content, h.scorer.Score(content), h.now())
	if err != nil {
		logger.Error("create post failed", zap.Int64("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, PostResponse{Success: true, Message: "Post created successfully", Post: post})
}

// UpdatePost rewrites one of the caller's posts and rescores it.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || postID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}
	content, ok := h.decodePost(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	post, err := h.posts.Update(ctx, user.ID, postID, content, h.scorer.Score(content))
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		logger.Error("update post failed", zap.Int64("user_id", user.ID), zap.Int64("post_id", postID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, PostResponse{Success: true, Message: "Post updated successfully", Post: post})
}

// ListPosts pages the caller's posts, newest first.
func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	limit := queryInt(r, "limit", 20, 100)
	if limit == 0 {
		limit = 20
	}
	skip := queryInt(r, "skip", 0, 0)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	posts, err := h.posts.ListByUser(ctx, user.ID, limit, skip)
	if err != nil {
		logger.Error("list posts failed", zap.Int64("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}

	writeJSON(w, http.StatusOK, PostsResponse{Success: true, Posts: posts})
}
