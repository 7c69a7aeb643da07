package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tubestream/backend/internal/db"
	"github.com/tubestream/backend/internal/models"
)

const videoSummaryColumns = `id, title, description, video_url, thumbnail_url, views, created_at`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, video_key,
                thumbnail_url, thumbnail_key, is_published, views, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL,
		video.VideoKey, video.ThumbnailURL, video.ThumbnailKey, video.IsPublished,
		video.Views, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a full video record.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	if !validID(id) {
		return models.Video{}, ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, title, description, video_url, video_key,
               thumbnail_url, thumbnail_key, is_published, views, created_at, updated_at
        FROM videos
        WHERE id = $1
    `, id)

	var video models.Video
	if err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoURL, &video.VideoKey, &video.ThumbnailURL, &video.ThumbnailKey,
		&video.IsPublished, &video.Views, &video.CreatedAt, &video.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// TitleExists reports whether the owner already has a video with this title.
func (r *PostgresVideoRepository) TitleExists(ctx context.Context, ownerID, title string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM videos WHERE owner_id = $1 AND title = $2)
    `, ownerID, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check video title: %w", err)
	}

	return exists, nil
}

// Update modifies an existing video record.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, thumbnail_key = $5,
            updated_at = $6
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.ThumbnailURL,
		video.ThumbnailKey, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a video record.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListVisible returns videos the requester may see: published videos plus the
// requester's own, newest first.
func (r *PostgresVideoRepository) ListVisible(ctx context.Context, requesterID string, page Page) ([]models.VideoSummary, error) {
	offset, limit := page.offsetLimit()
	return r.list(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM videos
        WHERE is_published OR owner_id = NULLIF($1, '')::uuid
        ORDER BY created_at DESC
        OFFSET $2 LIMIT $3
    `, requesterID, offset, limit)
}

// ListByOwner returns one owner's videos with the given publication state,
// newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string, published bool, page Page) ([]models.VideoSummary, error) {
	if !validID(ownerID) {
		return nil, ErrInvalidID
	}

	offset, limit := page.offsetLimit()
	return r.list(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM videos
        WHERE owner_id = $1 AND is_published = $2
        ORDER BY created_at DESC
        OFFSET $3 LIMIT $4
    `, ownerID, published, offset, limit)
}

// Random samples published videos for the unauthenticated home feed.
func (r *PostgresVideoRepository) Random(ctx context.Context, limit int) ([]models.VideoSummary, error) {
	if limit < 1 {
		limit = 10
	}
	return r.list(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM videos
        WHERE is_published
        ORDER BY random()
        LIMIT $1
    `, limit)
}

// Trending returns the most-viewed published videos, ties broken newest
// first.
func (r *PostgresVideoRepository) Trending(ctx context.Context, limit int) ([]models.VideoSummary, error) {
	if limit < 1 {
		limit = 10
	}
	return r.list(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM videos
        WHERE is_published
        ORDER BY views DESC, created_at DESC
        LIMIT $1
    `, limit)
}

// Search matches the query as a case-insensitive substring of title or
// description, restricted by the requester's visibility rule.
func (r *PostgresVideoRepository) Search(ctx context.Context, query, requesterID string) ([]models.VideoSummary, error) {
	pattern := "%" + query + "%"
	return r.list(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM videos
        WHERE (title ILIKE $1 OR description ILIKE $1)
          AND (is_published OR owner_id = NULLIF($2, '')::uuid)
        ORDER BY created_at DESC
    `, pattern, requesterID)
}

func (r *PostgresVideoRepository) list(ctx context.Context, query string, args ...any) ([]models.VideoSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.VideoSummary
	for rows.Next() {
		var v models.VideoSummary
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoFile,
			&v.Thumbnail, &v.Views, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

// IncrementViews adds one to the video's view counter.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	return r.adjustViews(ctx, id, `views = views + 1`)
}

// DecrementViews subtracts one from the view counter, clamped at zero.
func (r *PostgresVideoRepository) DecrementViews(ctx context.Context, id string) error {
	return r.adjustViews(ctx, id, `views = GREATEST(views - 1, 0)`)
}

func (r *PostgresVideoRepository) adjustViews(ctx context.Context, id, set string) error {
	if !validID(id) {
		return ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET `+set+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update views: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// TogglePublish flips the publication flag and returns the new state.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var published bool
	err = conn.QueryRow(ctx, `
        UPDATE videos SET is_published = NOT is_published
        WHERE id = $1
        RETURNING is_published
    `, id).Scan(&published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("toggle publish: %w", err)
	}

	return published, nil
}

// Owner joins the video's view count to its owner's public profile fields.
func (r *PostgresVideoRepository) Owner(ctx context.Context, id string) (models.VideoOwner, error) {
	if !validID(id) {
		return models.VideoOwner{}, ErrInvalidID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoOwner{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT v.views,
               u.id, u.email, u.user_name, u.full_name, u.avatar_url, u.cover_url, u.created_at
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, id)

	var owner models.VideoOwner
	if err := row.Scan(&owner.Views, &owner.Owner.ID, &owner.Owner.Email,
		&owner.Owner.UserName, &owner.Owner.FullName, &owner.Owner.Avatar,
		&owner.Owner.CoverImage, &owner.Owner.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoOwner{}, ErrNotFound
		}
		return models.VideoOwner{}, fmt.Errorf("select video owner: %w", err)
	}

	return owner, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
