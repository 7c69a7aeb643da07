package repositories

import (
	"context"

	"github.com/tubestream/backend/internal/models"
)

// Page bounds a listing query. Zero values fall back to the first page of ten.
type Page struct {
	Number int
	Limit  int
}

func (p Page) offsetLimit() (int, int) {
	number := p.Number
	if number < 1 {
		number = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = 10
	}
	return (number - 1) * limit, limit
}

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	TitleExists(ctx context.Context, ownerID, title string) (bool, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error

	ListVisible(ctx context.Context, requesterID string, page Page) ([]models.VideoSummary, error)
	ListByOwner(ctx context.Context, ownerID string, published bool, page Page) ([]models.VideoSummary, error)
	Random(ctx context.Context, limit int) ([]models.VideoSummary, error)
	Trending(ctx context.Context, limit int) ([]models.VideoSummary, error)
	Search(ctx context.Context, query, requesterID string) ([]models.VideoSummary, error)

	IncrementViews(ctx context.Context, id string) error
	DecrementViews(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (bool, error)
	Owner(ctx context.Context, id string) (models.VideoOwner, error)
}
