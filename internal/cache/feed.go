package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tubestream/backend/internal/models"
)

// ErrMiss indicates the requested feed is not cached.
var ErrMiss = errors.New("cache: miss")

// FeedCache stores short-lived video feed snapshots so hot listings avoid a
// database round trip.
type FeedCache interface {
	Get(ctx context.Context, key string) ([]models.VideoSummary, error)
	Set(ctx context.Context, key string, videos []models.VideoSummary) error
	Invalidate(ctx context.Context, key string) error
}

// HomeFeedKey is the cache key for the anonymous home feed.
const HomeFeedKey = "feed:home"

// TrendingFeedKey is the cache key for the most-viewed listing.
const TrendingFeedKey = "feed:trending"

// RedisFeedCache stores feed snapshots in Redis with a fixed TTL.
type RedisFeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ FeedCache = (*RedisFeedCache)(nil)

// NewRedisFeedCache constructs a feed cache over the supplied Redis client.
func NewRedisFeedCache(client *redis.Client, ttl time.Duration) *RedisFeedCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisFeedCache{client: client, ttl: ttl}
}

func (c *RedisFeedCache) Get(ctx context.Context, key string) ([]models.VideoSummary, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var videos []models.VideoSummary
	if err := json.Unmarshal(payload, &videos); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return videos, nil
}

func (c *RedisFeedCache) Set(ctx context.Context, key string, videos []models.VideoSummary) error {
	payload, err := json.Marshal(videos)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *RedisFeedCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", key, err)
	}
	return nil
}

type memoryEntry struct {
	videos  []models.VideoSummary
	expires time.Time
}

// MemoryFeedCache is a TTL-based in-memory fallback used when Redis is not
// configured.
type MemoryFeedCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]memoryEntry
}

var _ FeedCache = (*MemoryFeedCache)(nil)

// NewMemoryFeedCache returns an in-process feed cache with the provided TTL.
func NewMemoryFeedCache(ttl time.Duration) *MemoryFeedCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryFeedCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]memoryEntry),
	}
}

func (c *MemoryFeedCache) Get(_ context.Context, key string) ([]models.VideoSummary, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || now.After(entry.expires) {
		return nil, ErrMiss
	}
	return entry.videos, nil
}

func (c *MemoryFeedCache) Set(_ context.Context, key string, videos []models.VideoSummary) error {
	c.mu.Lock()
	c.items[key] = memoryEntry{videos: videos, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryFeedCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}
