package repositories

import (
	"context"
	"time"

	"github.com/tubestream/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUserName(ctx context.Context, userName string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}

// WatchHistoryRepository records and reads a user's ordered watch history.
type WatchHistoryRepository interface {
	RecordWatch(ctx context.Context, userID, videoID string, watchedAt time.Time) error
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
}
