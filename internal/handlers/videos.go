package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tubestream/backend/internal/cache"
	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/media"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

// VideoHandler implements publishing, listing, and view counter endpoints.
type VideoHandler struct {
	Videos       VideoStore
	Media        MediaBinder
	Orphans      OrphanCollector
	History      WatchHistoryStore
	Feed         FeedCache
	HomeFeedSize int
	NowFunc      func() time.Time
}

// Publish handles POST /api/v1/videos. The body is multipart: title and
// description fields plus the video file and its thumbnail, both required.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "videos.publish")
	defer span.End()
	logger := logging.FromContext(ctx)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "multipart form data is required")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	exists, err := h.Videos.TitleExists(ctx, identity.ID, title)
	if err != nil {
		logger.Error("check title", "error", err, "title", title)
		respondError(ctx, w, http.StatusInternalServerError, "unable to verify title")
		return
	}
	if exists {
		respondError(ctx, w, http.StatusConflict, "you already published a video with that title")
		return
	}

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "videoFile is required")
		return
	}
	defer videoFile.Close()

	thumbFile, thumbHeader, err := r.FormFile("thumbnail")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
		return
	}
	defer thumbFile.Close()

	videoObj, err := h.Media.Upload(ctx, media.KindVideo, videoHeader.Filename, videoHeader.Header.Get("Content-Type"), videoFile)
	if err != nil {
		logger.Error("video upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video file")
		return
	}

	thumbObj, err := h.Media.Upload(ctx, media.KindThumbnail, thumbHeader.Filename, thumbHeader.Header.Get("Content-Type"), thumbFile)
	if err != nil {
		logger.Error("thumbnail upload failed", "error", err)
		h.discard(ctx, videoObj.Key)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      identity.ID,
		Title:        title,
		Description:  description,
		VideoURL:     videoObj.URL,
		VideoKey:     videoObj.Key,
		ThumbnailURL: thumbObj.URL,
		ThumbnailKey: thumbObj.Key,
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		h.discard(ctx, videoObj.Key, thumbObj.Key)
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "you already published a video with that title")
			return
		}
		logger.Error("create video", "error", err, "title", title)
		respondError(ctx, w, http.StatusInternalServerError, "failed to publish video")
		return
	}

	h.invalidateFeeds(ctx)
	respondData(ctx, w, http.StatusCreated, video.Summary(), "video published")
}

// Get handles GET /api/v1/videos/{videoID}. Unpublished videos are visible to
// their owner only. Authenticated views are recorded in watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, status, msg := h.visibleVideo(ctx, chi.URLParam(r, "videoID"))
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if identity, ok := IdentityFrom(ctx); ok && h.History != nil {
		if err := h.History.RecordWatch(ctx, identity.ID, video.ID, h.now()); err != nil {
			logger.Error("record watch", "error", err, "videoId", video.ID, "userId", identity.ID)
		}
	}

	respondData(ctx, w, http.StatusOK, video.Summary(), "video")
}

// Update handles PATCH /api/v1/videos/{videoID}. Owners may change title and
// description, and optionally attach a replacement thumbnail; replacing
// deletes the old thumbnail object first, and a failed deletion aborts the
// update leaving the stored record untouched.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, status, msg := h.ownedVideo(ctx, chi.URLParam(r, "videoID"))
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "multipart form data is required")
		return
	}

	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		video.Title = title
	}
	if description := strings.TrimSpace(r.FormValue("description")); description != "" {
		video.Description = description
	}

	if thumbFile, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumbFile.Close()

		obj, err := h.Media.Replace(ctx, video.ThumbnailKey, media.KindThumbnail, thumbHeader.Filename, thumbHeader.Header.Get("Content-Type"), thumbFile)
		if err != nil {
			logger.Error("replace thumbnail", "error", err, "videoId", video.ID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to replace thumbnail")
			return
		}
		video.ThumbnailURL, video.ThumbnailKey = obj.URL, obj.Key
	}

	video.UpdatedAt = h.now()
	if err := h.Videos.Update(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "you already published a video with that title")
			return
		}
		logger.Error("update video", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update video")
		return
	}

	respondData(ctx, w, http.StatusOK, video.Summary(), "video updated")
}

// Remove handles DELETE /api/v1/videos/{videoID}. Both stored objects are
// deleted before the record; an object deletion failure retains the record.
func (h VideoHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, status, msg := h.ownedVideo(ctx, chi.URLParam(r, "videoID"))
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	for _, key := range []string{video.VideoKey, video.ThumbnailKey} {
		if err := h.Media.Delete(ctx, key); err != nil {
			logger.Error("delete video object", "error", err, "videoId", video.ID, "key", key)
			respondError(ctx, w, http.StatusInternalServerError, "failed to delete video media")
			return
		}
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		logger.Error("delete video", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	h.invalidateFeeds(ctx)
	respondData(ctx, w, http.StatusOK, nil, "video deleted")
}

// List handles GET /api/v1/videos. Published videos are visible to everyone;
// callers additionally see their own unpublished videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requesterID := ""
	if identity, ok := IdentityFrom(ctx); ok {
		requesterID = identity.ID
	}

	videos, err := h.Videos.ListVisible(ctx, requesterID, pageFromQuery(r))
	if err != nil {
		logging.FromContext(ctx).Error("list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list videos")
		return
	}

	respondData(ctx, w, http.StatusOK, summaries(videos), "videos")
}

// ListByChannel handles GET /api/v1/channels/{channelID}/videos. The
// published=false variant is restricted to the channel owner.
func (h VideoHandler) ListByChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := chi.URLParam(r, "channelID")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelID is required")
		return
	}

	published := true
	if raw := r.URL.Query().Get("published"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(ctx, w, http.StatusBadRequest, "published must be true or false")
			return
		}
		published = parsed
	}

	if !published {
		identity, ok := IdentityFrom(ctx)
		if !ok || identity.ID != channelID {
			respondError(ctx, w, http.StatusForbidden, "only the channel owner may list unpublished videos")
			return
		}
	}

	videos, err := h.Videos.ListByOwner(ctx, channelID, published, pageFromQuery(r))
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid channel id")
			return
		}
		logging.FromContext(ctx).Error("list channel videos", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list videos")
		return
	}

	respondData(ctx, w, http.StatusOK, summaries(videos), "channel videos")
}

// Home handles GET /api/v1/videos/home: an unauthenticated random sample of
// published videos served through a short-lived cache.
func (h VideoHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Feed != nil {
		if videos, err := h.Feed.Get(ctx, cache.HomeFeedKey); err == nil {
			respondData(ctx, w, http.StatusOK, summaries(videos), "home feed")
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("home feed cache read failed", "error", err)
		}
	}

	size := h.HomeFeedSize
	if size <= 0 {
		size = 20
	}

	videos, err := h.Videos.Random(ctx, size)
	if err != nil {
		logger.Error("load home feed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load home feed")
		return
	}

	if h.Feed != nil {
		if err := h.Feed.Set(ctx, cache.HomeFeedKey, videos); err != nil {
			logger.Warn("home feed cache write failed", "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, summaries(videos), "home feed")
}

// Trending handles GET /api/v1/videos/trending: the most-viewed published
// videos, cached the same way as the home feed.
func (h VideoHandler) Trending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Feed != nil {
		if videos, err := h.Feed.Get(ctx, cache.TrendingFeedKey); err == nil {
			respondData(ctx, w, http.StatusOK, summaries(videos), "trending videos")
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("trending feed cache read failed", "error", err)
		}
	}

	size := h.HomeFeedSize
	if size <= 0 {
		size = 20
	}

	videos, err := h.Videos.Trending(ctx, size)
	if err != nil {
		logger.Error("load trending videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load trending videos")
		return
	}

	if h.Feed != nil {
		if err := h.Feed.Set(ctx, cache.TrendingFeedKey, videos); err != nil {
			logger.Warn("trending feed cache write failed", "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, summaries(videos), "trending videos")
}

// Search handles GET /api/v1/videos/search?query=.
func (h VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respondError(ctx, w, http.StatusBadRequest, "query is required")
		return
	}

	requesterID := ""
	if identity, ok := IdentityFrom(ctx); ok {
		requesterID = identity.ID
	}

	videos, err := h.Videos.Search(ctx, query, requesterID)
	if err != nil {
		logging.FromContext(ctx).Error("search videos", "error", err, "query", query)
		respondError(ctx, w, http.StatusInternalServerError, "unable to search videos")
		return
	}

	respondData(ctx, w, http.StatusOK, summaries(videos), "search results")
}

// IncrementView handles POST /api/v1/videos/{videoID}/views.
func (h VideoHandler) IncrementView(w http.ResponseWriter, r *http.Request) {
	h.adjustViews(w, r, h.Videos.IncrementViews, "view recorded")
}

// DecrementView handles DELETE /api/v1/videos/{videoID}/views. The counter
// never drops below zero.
func (h VideoHandler) DecrementView(w http.ResponseWriter, r *http.Request) {
	h.adjustViews(w, r, h.Videos.DecrementViews, "view removed")
}

func (h VideoHandler) adjustViews(w http.ResponseWriter, r *http.Request, adjust func(context.Context, string) error, message string) {
	ctx := r.Context()

	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoID is required")
		return
	}

	if err := adjust(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid video id")
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("adjust views", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update view count")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, message)
}

// TogglePublish handles PATCH /api/v1/videos/{videoID}/publish.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, status, msg := h.ownedVideo(ctx, chi.URLParam(r, "videoID"))
	if status != 0 {
		respondError(ctx, w, status, msg)
		return
	}

	published, err := h.Videos.TogglePublish(ctx, video.ID)
	if err != nil {
		logging.FromContext(ctx).Error("toggle publish", "error", err, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle publish state")
		return
	}

	h.invalidateFeeds(ctx)
	respondData(ctx, w, http.StatusOK, map[string]bool{"isPublished": published}, "publish state toggled")
}

// Owner handles GET /api/v1/videos/{videoID}/owner.
func (h VideoHandler) Owner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoID is required")
		return
	}

	owner, err := h.Videos.Owner(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			respondError(ctx, w, http.StatusBadRequest, "invalid video id")
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("load video owner", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video owner")
		return
	}

	respondData(ctx, w, http.StatusOK, owner, "video owner")
}

// visibleVideo loads a video applying the visibility rule. A non-zero status
// return carries the response to send instead.
func (h VideoHandler) visibleVideo(ctx context.Context, videoID string) (models.Video, int, string) {
	if videoID == "" {
		return models.Video{}, http.StatusBadRequest, "videoID is required"
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			return models.Video{}, http.StatusBadRequest, "invalid video id"
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, http.StatusNotFound, "video not found"
		}
		logging.FromContext(ctx).Error("load video", "error", err, "videoId", videoID)
		return models.Video{}, http.StatusInternalServerError, "unable to load video"
	}

	if !video.IsPublished {
		identity, ok := IdentityFrom(ctx)
		if !ok || identity.ID != video.OwnerID {
			return models.Video{}, http.StatusNotFound, "video not found"
		}
	}

	return video, 0, ""
}

// ownedVideo loads a video for a mutating operation. Videos owned by someone
// else surface as not found rather than forbidden.
func (h VideoHandler) ownedVideo(ctx context.Context, videoID string) (models.Video, int, string) {
	identity, ok := IdentityFrom(ctx)
	if !ok {
		return models.Video{}, http.StatusUnauthorized, "authentication required"
	}
	if videoID == "" {
		return models.Video{}, http.StatusBadRequest, "videoID is required"
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			return models.Video{}, http.StatusBadRequest, "invalid video id"
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, http.StatusNotFound, "video not found"
		}
		logging.FromContext(ctx).Error("load video", "error", err, "videoId", videoID)
		return models.Video{}, http.StatusInternalServerError, "unable to load video"
	}

	if video.OwnerID != identity.ID {
		return models.Video{}, http.StatusNotFound, "video not found"
	}

	return video, 0, ""
}

func (h VideoHandler) invalidateFeeds(ctx context.Context) {
	if h.Feed == nil {
		return
	}
	for _, key := range []string{cache.HomeFeedKey, cache.TrendingFeedKey} {
		if err := h.Feed.Invalidate(ctx, key); err != nil {
			logging.FromContext(ctx).Warn("feed cache invalidate failed", "key", key, "error", err)
		}
	}
}

func (h VideoHandler) discard(ctx context.Context, keys ...string) {
	if h.Orphans == nil {
		return
	}
	if err := h.Orphans.Discard(ctx, keys...); err != nil {
		logging.FromContext(ctx).Error("schedule orphan cleanup", "error", err)
	}
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func pageFromQuery(r *http.Request) repositories.Page {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	return repositories.Page{Number: page, Limit: limit}
}

func summaries(videos []models.VideoSummary) []models.VideoSummary {
	if videos == nil {
		return []models.VideoSummary{}
	}
	return videos
}
