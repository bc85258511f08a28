package providers

import (
	"context"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
)

// GeocodingProvider resolves a street and neighborhood to coordinates.
// A nil result with a nil error means no match.
type GeocodingProvider interface {
	Geocode(ctx context.Context, street, neighborhood string) (*entities.Coordinates, error)
}
