package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

// SocialHandler implements the subscription and like endpoints.
type SocialHandler struct {
	Users         UserStore
	Subscriptions SubscriptionStore
	Likes         LikeStore
	Videos        VideoStore
	Comments      CommentStore
}

// ToggleSubscription handles POST /api/v1/subscriptions/{channelID}.
// Subscribing to yourself succeeds without ever creating an edge.
func (h SocialHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	channelID := chi.URLParam(r, "channelID")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelID is required")
		return
	}

	if channelID == identity.ID {
		respondData(ctx, w, http.StatusOK, toggleSubscriptionResponse{Subscribed: false}, "cannot subscribe to your own channel")
		return
	}

	channel, err := h.Users.FindByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid channel id")
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logger.Error("load channel", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, identity.ID, channel.ID, channel.UserName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logger.Error("toggle subscription", "error", err, "channelId", channelID, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle subscription")
		return
	}

	message := "unsubscribed"
	if subscribed {
		message = "subscribed"
	}
	respondData(ctx, w, http.StatusOK, toggleSubscriptionResponse{Subscribed: subscribed}, message)
}

// ListSubscribers handles GET /api/v1/channels/{channelID}/subscribers.
func (h SocialHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := chi.URLParam(r, "channelID")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelID is required")
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid channel id")
			return
		}
		logging.FromContext(ctx).Error("list subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list subscribers")
		return
	}
	if subscribers.Subscribers == nil {
		subscribers.Subscribers = []models.PublicUser{}
	}

	respondData(ctx, w, http.StatusOK, subscribers, "subscribers")
}

// ListSubscriptions handles GET /api/v1/subscriptions: the channels the
// authenticated user subscribes to.
func (h SocialHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, identity.ID)
	if err != nil {
		logging.FromContext(ctx).Error("list subscriptions", "error", err, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list subscriptions")
		return
	}
	if channels == nil {
		channels = []models.PublicUser{}
	}

	respondData(ctx, w, http.StatusOK, channels, "subscribed channels")
}

// ToggleLike handles POST /api/v1/likes/{kind}/{targetID}.
func (h SocialHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	kind, targetID, ok := likeTarget(r)
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "unsupported like target")
		return
	}

	if err := h.targetExists(ctx, kind, targetID); err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid like target id")
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "like target not found")
			return
		}
		logger.Error("check like target", "error", err, "kind", string(kind), "targetId", targetID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle like")
		return
	}

	liked, err := h.Likes.Toggle(ctx, identity.ID, kind, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "like target not found")
			return
		}
		logger.Error("toggle like", "error", err, "kind", string(kind), "targetId", targetID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle like")
		return
	}

	action := "unlike"
	if liked {
		action = "like"
	}
	respondData(ctx, w, http.StatusOK, toggleLikeResponse{Action: action, Liked: liked}, action)
}

// LikeState handles GET /api/v1/likes/{kind}/{targetID}: whether the caller
// has liked the target, plus its total like count.
func (h SocialHandler) LikeState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	kind, targetID, ok := likeTarget(r)
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "unsupported like target")
		return
	}

	liked, err := h.Likes.Exists(ctx, identity.ID, kind, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid like target id")
			return
		}
		logger.Error("read like state", "error", err, "kind", string(kind), "targetId", targetID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to read like state")
		return
	}

	total, err := h.Likes.Count(ctx, kind, targetID)
	if err != nil {
		logger.Error("count likes", "error", err, "kind", string(kind), "targetId", targetID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to count likes")
		return
	}

	respondData(ctx, w, http.StatusOK, likeStateResponse{Liked: liked, TotalLikes: total}, "like state")
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h SocialHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videos, err := h.Likes.LikedVideos(ctx, identity.ID)
	if err != nil {
		logging.FromContext(ctx).Error("list liked videos", "error", err, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list liked videos")
		return
	}
	if videos == nil {
		videos = []models.LikedVideo{}
	}

	respondData(ctx, w, http.StatusOK, videos, "liked videos")
}

// targetExists checks the liked entity is present. The tweet kind has no
// backing table yet, so it passes unchecked.
func (h SocialHandler) targetExists(ctx context.Context, kind models.LikeTarget, targetID string) error {
	switch kind {
	case models.LikeTargetVideo:
		_, err := h.Videos.FindByID(ctx, targetID)
		return err
	case models.LikeTargetComment:
		_, err := h.Comments.FindByID(ctx, targetID)
		return err
	default:
		return nil
	}
}

func likeTarget(r *http.Request) (models.LikeTarget, string, bool) {
	kind := models.LikeTarget(chi.URLParam(r, "kind"))
	targetID := chi.URLParam(r, "targetID")
	if !kind.Valid() || targetID == "" {
		return "", "", false
	}
	return kind, targetID, true
}

type toggleSubscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}

type toggleLikeResponse struct {
	Action string `json:"action"`
	Liked  bool   `json:"liked"`
}

type likeStateResponse struct {
	Liked      bool  `json:"liked"`
	TotalLikes int64 `json:"totalLikes"`
}
