package repositories

import (
	"context"
	"time"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
)

// PredictionRepository defines the interface for prediction record operations
type PredictionRepository interface {
	// Create stores a new record
	Create(ctx context.Context, record *entities.PredictionRecord) error

	// Update applies a partial update and returns the stored record
	Update(ctx context.Context, id string, patch PredictionPatch) (*entities.PredictionRecord, error)

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id string) (*entities.PredictionRecord, error)

	// List retrieves records matching the filter, newest first
	List(ctx context.Context, filter PredictionFilter) ([]*entities.PredictionRecord, error)

	// ToggleFavorite flips the favorite flag of a record owned by ownerSub
	ToggleFavorite(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error)

	// Delete removes a record owned by ownerSub and reports whether one was removed
	Delete(ctx context.Context, id, ownerSub string) (bool, error)

	// Statistics aggregates the records of one owner
	Statistics(ctx context.Context, ownerSub string) (*PredictionStatistics, error)
}

// PredictionPatch lists the fields to change; nil fields are left untouched
type PredictionPatch struct {
	Status          *entities.PredictionStatus
	PredictionMin   *int64
	PredictionMax   *int64
	Currency        *string
	Images          *entities.ReportImages
	Metrics         map[string]any
	NearbyPlaces    *entities.NearbyPlacesResult
	ErrorMessage    *string
	ExecutionTimeMs *int64
	UserNotes       *string
	IsFavorite      *bool
}

// PredictionFilter defines filters for listing records
type PredictionFilter struct {
	CognitoSub  string
	Status      entities.PredictionStatus
	Barrio      string
	Dormitorios *int
	IsFavorite  *bool
	DateFrom    *time.Time
	DateTo      *time.Time
	MinPrice    *float64
	MaxPrice    *float64
	Limit       int
	Offset      int
}

// PredictionStatistics summarizes one owner's history
type PredictionStatistics struct {
	Total        int     `json:"total"`
	Successful   int     `json:"successful"`
	Failed       int     `json:"failed"`
	Favorites    int     `json:"favorites"`
	AveragePrice float64 `json:"averagePrice"`
}
