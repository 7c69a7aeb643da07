package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/cache"
	"github.com/tubestream/backend/internal/config"
	"github.com/tubestream/backend/internal/db"
	"github.com/tubestream/backend/internal/handlers"
	"github.com/tubestream/backend/internal/media"
	"github.com/tubestream/backend/internal/middleware"
	"github.com/tubestream/backend/internal/repositories"
	"github.com/tubestream/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned janitor must be shut down after the server stops so
// pending orphan deletions drain.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *media.Janitor, error) {
	signer, err := auth.NewSigner(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	users := repositories.NewPostgresUserRepository(pool)
	janitor := media.NewJanitor(store, media.JanitorConfig{}, logger)

	var feed handlers.FeedCache
	if cfg.RedisAddr != "" {
		feed = cache.NewRedisFeedCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.HomeFeedTTL)
	} else {
		feed = cache.NewMemoryFeedCache(cfg.HomeFeedTTL)
	}

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      auth.NewManager(signer, users),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		History:       users,
		Media:         media.NewBinder(store),
		Orphans:       janitor,
		Feed:          feed,
		HomeFeedSize:  cfg.HomeFeedSize,
		Verifier:      signer,
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateBurst, 10*time.Minute),
	}

	return deps, janitor, nil
}
