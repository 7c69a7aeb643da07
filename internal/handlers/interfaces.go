package handlers

import (
	"context"
	"io"
	"time"

	"github.com/tubestream/backend/internal/media"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

// UserStore captures the persistence operations required by account handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUserName(ctx context.Context, userName string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}

// SessionManager issues, rotates, and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore captures persistence for video publishing and listing workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	TitleExists(ctx context.Context, ownerID, title string) (bool, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	ListVisible(ctx context.Context, requesterID string, page repositories.Page) ([]models.VideoSummary, error)
	ListByOwner(ctx context.Context, ownerID string, published bool, page repositories.Page) ([]models.VideoSummary, error)
	Random(ctx context.Context, limit int) ([]models.VideoSummary, error)
	Trending(ctx context.Context, limit int) ([]models.VideoSummary, error)
	Search(ctx context.Context, query, requesterID string) ([]models.VideoSummary, error)
	IncrementViews(ctx context.Context, id string) error
	DecrementViews(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (bool, error)
	Owner(ctx context.Context, id string) (models.VideoOwner, error)
}

// SubscriptionStore captures persistence for the subscription graph.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID, channelName string) (bool, error)
	Subscribers(ctx context.Context, channelID string) (models.SubscriberList, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.PublicUser, error)
	ChannelProfile(ctx context.Context, userName, viewerID string) (models.ChannelProfile, error)
}

// LikeStore captures persistence for like edges across target kinds.
type LikeStore interface {
	Toggle(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error)
	Exists(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error)
	Count(ctx context.Context, kind models.LikeTarget, targetID string) (int64, error)
	LikedVideos(ctx context.Context, userID string) ([]models.LikedVideo, error)
}

// CommentStore captures persistence for video comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string, page repositories.Page) ([]models.CommentWithAuthor, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// WatchHistoryStore records and reads a user's ordered watch history.
type WatchHistoryStore interface {
	RecordWatch(ctx context.Context, userID, videoID string, watchedAt time.Time) error
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
}

// MediaBinder uploads, replaces, and deletes externally stored media objects.
type MediaBinder interface {
	Upload(ctx context.Context, kind media.Kind, filename, contentType string, r io.Reader) (media.Object, error)
	Replace(ctx context.Context, oldKey string, kind media.Kind, filename, contentType string, r io.Reader) (media.Object, error)
	Delete(ctx context.Context, key string) error
}

// OrphanCollector schedules deletion of objects whose record insert failed.
type OrphanCollector interface {
	Discard(ctx context.Context, keys ...string) error
}

// FeedCache caches home feed snapshots.
type FeedCache interface {
	Get(ctx context.Context, key string) ([]models.VideoSummary, error)
	Set(ctx context.Context, key string, videos []models.VideoSummary) error
	Invalidate(ctx context.Context, key string) error
}
