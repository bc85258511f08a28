package providers

import (
	"context"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
)

// OSMElement is a tagged node or way returned by the geographic database.
// Ways carry their center point in Lat/Lon.
type OSMElement struct {
	ID   int64
	Type string
	Lat  float64
	Lon  float64
	Tags map[string]string
}

// PlacesProvider runs one category search around a point
type PlacesProvider interface {
	QueryCategory(ctx context.Context, category entities.PlaceCategory, center entities.Coordinates, radiusMeters int) ([]OSMElement, error)
}
