package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tubestream/backend/internal/db"
	"github.com/tubestream/backend/internal/models"
)

// PostgresSubscriptionRepository persists subscription edges in PostgreSQL.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle removes the (subscriber, channel) edge when present, otherwise
// creates it. Returns true when the edge exists after the call. The unique
// index on the pair makes a concurrent double-create collapse to one edge.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID, channelName string) (bool, error) {
	if !validID(channelID) {
		return false, ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, channel_name, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (subscriber_id, channel_id) DO NOTHING
    `, uuid.NewString(), subscriberID, channelID, channelName, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	return true, nil
}

// Subscribers returns the channel's subscriber count and joined public
// profiles. A channel with no subscribers yields an empty list, not an error.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channelID string) (models.SubscriberList, error) {
	if !validID(channelID) {
		return models.SubscriberList{}, ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.SubscriberList{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.email, u.user_name, u.full_name, u.avatar_url, u.cover_url, u.created_at
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC
    `, channelID)
	if err != nil {
		return models.SubscriberList{}, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	list := models.SubscriberList{Subscribers: []models.PublicUser{}}
	for rows.Next() {
		var u models.PublicUser
		if err := rows.Scan(&u.ID, &u.Email, &u.UserName, &u.FullName,
			&u.Avatar, &u.CoverImage, &u.CreatedAt); err != nil {
			return models.SubscriberList{}, fmt.Errorf("scan subscriber: %w", err)
		}
		list.Subscribers = append(list.Subscribers, u)
	}

	if err := rows.Err(); err != nil {
		return models.SubscriberList{}, fmt.Errorf("iterate subscribers: %w", err)
	}

	list.TotalSubscribers = int64(len(list.Subscribers))
	return list, nil
}

// SubscribedChannels returns the public profiles of channels the user
// subscribes to. Empty result is an empty list.
func (r *PostgresSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriberID string) ([]models.PublicUser, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.email, u.user_name, u.full_name, u.avatar_url, u.cover_url, u.created_at
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC
    `, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	channels := []models.PublicUser{}
	for rows.Next() {
		var u models.PublicUser
		if err := rows.Scan(&u.ID, &u.Email, &u.UserName, &u.FullName,
			&u.Avatar, &u.CoverImage, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		channels = append(channels, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return channels, nil
}

// ChannelProfile resolves a user by username (case-insensitive) and computes
// the subscriber aggregates plus the viewer's own subscription state.
func (r *PostgresSubscriptionRepository) ChannelProfile(ctx context.Context, userName, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.email, u.user_name, u.full_name, u.avatar_url, u.cover_url, u.created_at,
               (SELECT COUNT(*) FROM subscriptions WHERE channel_id = u.id),
               (SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = u.id),
               EXISTS (SELECT 1 FROM subscriptions WHERE channel_id = u.id AND subscriber_id = NULLIF($2, '')::uuid)
        FROM users u
        WHERE u.user_name = LOWER($1)
    `, userName, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(&profile.ID, &profile.Email, &profile.UserName, &profile.FullName,
		&profile.Avatar, &profile.CoverImage, &profile.CreatedAt,
		&profile.SubscribersCount, &profile.SubscribedCount, &profile.IsSubscribed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// PostgresLikeRepository persists like edges in PostgreSQL.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle removes the (user, kind, target) edge when present, otherwise
// creates it. Returns true when the target is liked after the call.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error) {
	if !validID(targetID) {
		return false, ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE user_id = $1 AND target_kind = $2 AND target_id = $3
    `, userID, kind, targetID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, user_id, target_kind, target_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id, target_kind, target_id) DO NOTHING
    `, uuid.NewString(), userID, kind, targetID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("insert like: %w", err)
	}

	return true, nil
}

// Exists reports whether the user has an active like on the target.
func (r *PostgresLikeRepository) Exists(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error) {
	if !validID(targetID) {
		return false, ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM likes
            WHERE user_id = $1 AND target_kind = $2 AND target_id = $3
        )
    `, userID, kind, targetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}

	return exists, nil
}

// Count returns the number of likes on the target.
func (r *PostgresLikeRepository) Count(ctx context.Context, kind models.LikeTarget, targetID string) (int64, error) {
	if !validID(targetID) {
		return 0, ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM likes WHERE target_kind = $1 AND target_id = $2
    `, kind, targetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}

	return count, nil
}

// LikedVideos joins the user's video likes against the videos collection,
// projecting title and primary media reference only.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string) ([]models.LikedVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.title, v.video_url
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        WHERE l.user_id = $1 AND l.target_kind = $2
        ORDER BY l.created_at DESC
    `, userID, models.LikeTargetVideo)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	liked := []models.LikedVideo{}
	for rows.Next() {
		var v models.LikedVideo
		if err := rows.Scan(&v.Title, &v.VideoFile); err != nil {
			return nil, fmt.Errorf("scan liked video: %w", err)
		}
		liked = append(liked, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked videos: %w", err)
	}

	return liked, nil
}

var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
var _ LikeRepository = (*PostgresLikeRepository)(nil)
