package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

// CommentHandler implements the comment endpoints for videos.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

// Add handles POST /api/v1/videos/{videoID}/comments.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoID is required")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid video id")
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("load video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   identity.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("create comment", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to add comment")
		return
	}

	respondData(ctx, w, http.StatusCreated, models.CommentWithAuthor{
		ID:        comment.ID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		Author:    identity,
	}, "comment added")
}

// List handles GET /api/v1/videos/{videoID}/comments, newest first.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoID is required")
		return
	}

	comments, err := h.Comments.ListForVideo(ctx, videoID, pageFromQuery(r))
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid video id")
			return
		}
		logging.FromContext(ctx).Error("list comments", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list comments")
		return
	}
	if comments == nil {
		comments = []models.CommentWithAuthor{}
	}

	respondData(ctx, w, http.StatusOK, comments, "comments")
}

// Update handles PATCH /api/v1/comments/{commentID}. Only the comment's
// author may edit it.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	comment, status, msg := h.ownedComment(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	if err := h.Comments.UpdateContent(ctx, comment.ID, req.Content); err != nil {
		logger.Error("update comment", "error", err, "commentId", comment.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update comment")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "comment updated")
}

// Delete handles DELETE /api/v1/comments/{commentID}. Only the comment's
// author may delete it.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comment, status, msg := h.ownedComment(r)
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		logging.FromContext(ctx).Error("delete comment", "error", err, "commentId", comment.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "comment deleted")
}

// ownedComment loads a comment and checks the caller authored it. Authorship
// mismatches are forbidden rather than hidden.
func (h CommentHandler) ownedComment(r *http.Request) (models.Comment, int, string) {
	ctx := r.Context()

	identity, ok := IdentityFrom(ctx)
	if !ok {
		return models.Comment{}, http.StatusUnauthorized, "authentication required"
	}

	commentID := chi.URLParam(r, "commentID")
	if commentID == "" {
		return models.Comment{}, http.StatusBadRequest, "commentID is required"
	}

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			return models.Comment{}, http.StatusBadRequest, "invalid comment id"
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Comment{}, http.StatusNotFound, "comment not found"
		}
		logging.FromContext(ctx).Error("load comment", "error", err, "commentId", commentID)
		return models.Comment{}, http.StatusInternalServerError, "unable to load comment"
	}

	if comment.OwnerID != identity.ID {
		return models.Comment{}, http.StatusForbidden, "you may only modify your own comments"
	}

	return comment, 0, ""
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type commentRequest struct {
	Content string `json:"content"`
}
