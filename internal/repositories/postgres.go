package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/db"
	"github.com/tubestream/backend/internal/models"
)

const userColumns = `id, email, user_name, full_name, password_hash,
        avatar_url, avatar_key, cover_url, cover_key,
        COALESCE(refresh_token, ''), created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, user_name, full_name, password_hash,
                avatar_url, avatar_key, cover_url, cover_key, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, user.ID, user.Email, user.UserName, user.FullName, user.Password,
		user.AvatarURL, user.AvatarKey, user.CoverURL, user.CoverKey,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	if !validID(id) {
		return models.User{}, ErrInvalidID
	}
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

// FindByUserName fetches a user by username, matched case-insensitively.
func (r *PostgresUserRepository) FindByUserName(ctx context.Context, userName string) (models.User, error) {
	return r.findOne(ctx, `WHERE user_name = LOWER($1)`, userName)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.UserName, &user.FullName,
		&user.Password, &user.AvatarURL, &user.AvatarKey, &user.CoverURL,
		&user.CoverKey, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET email = $2, user_name = $3, full_name = $4, password_hash = $5,
            avatar_url = $6, avatar_key = $7, cover_url = $8, cover_key = $9,
            updated_at = $10
        WHERE id = $1
    `, user.ID, user.Email, user.UserName, user.FullName, user.Password,
		user.AvatarURL, user.AvatarKey, user.CoverURL, user.CoverKey, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetRefreshToken overwrites the user's single active refresh token slot.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = $2 WHERE id = $1
    `, userID, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshTokenFor returns the stored refresh token for the user.
func (r *PostgresUserRepository) RefreshTokenFor(ctx context.Context, userID string) (string, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.RefreshToken, nil
}

// ClearRefreshToken removes the user's stored refresh token.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	return r.SetRefreshToken(ctx, userID, "")
}

// RecordWatch appends a video to the user's watch history, promoting an
// existing entry to the front on re-watch.
func (r *PostgresUserRepository) RecordWatch(ctx context.Context, userID, videoID string, watchedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, userID, videoID, watchedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("upsert watch history: %w", err)
	}

	return nil
}

// WatchHistory returns the user's watch history joined to each video and the
// video owner's public profile, most recent watch first.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.title, v.description, v.video_url, v.thumbnail_url,
               v.views, v.created_at,
               u.id, u.email, u.user_name, u.full_name, u.avatar_url, u.cover_url, u.created_at,
               h.watched_at
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE h.user_id = $1
        ORDER BY h.watched_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var history []models.WatchedVideo
	for rows.Next() {
		var entry models.WatchedVideo
		if err := rows.Scan(&entry.Video.ID, &entry.Video.Title, &entry.Video.Description,
			&entry.Video.VideoFile, &entry.Video.Thumbnail, &entry.Video.Views, &entry.Video.CreatedAt,
			&entry.Owner.ID, &entry.Owner.Email, &entry.Owner.UserName, &entry.Owner.FullName,
			&entry.Owner.Avatar, &entry.Owner.CoverImage, &entry.Owner.CreatedAt,
			&entry.WatchedAt); err != nil {
			return nil, fmt.Errorf("scan watch history entry: %w", err)
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return history, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ WatchHistoryRepository = (*PostgresUserRepository)(nil)
var _ auth.RefreshTokenStore = (*PostgresUserRepository)(nil)
