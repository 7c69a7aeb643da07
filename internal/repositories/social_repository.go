package repositories

import (
	"context"

	"github.com/tubestream/backend/internal/models"
)

// SubscriptionRepository defines data access for subscription edges.
type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriberID, channelID, channelName string) (bool, error)
	Subscribers(ctx context.Context, channelID string) (models.SubscriberList, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.PublicUser, error)
	ChannelProfile(ctx context.Context, userName, viewerID string) (models.ChannelProfile, error)
}

// LikeRepository defines data access for like edges across target kinds.
type LikeRepository interface {
	Toggle(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error)
	Exists(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error)
	Count(ctx context.Context, kind models.LikeTarget, targetID string) (int64, error)
	LikedVideos(ctx context.Context, userID string) ([]models.LikedVideo, error)
}

// CommentRepository defines data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string, page Page) ([]models.CommentWithAuthor, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}
