package geolocation

import (
	"context"
	"strings"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/pkg/utils"
)

// neighborhoodCentroids are approximate centers of the supported neighborhoods
var neighborhoodCentroids = map[string]entities.Coordinates{
	"Palermo":          {Lat: -34.5889, Lng: -58.4306},
	"Belgrano":         {Lat: -34.5627, Lng: -58.4583},
	"Recoleta":         {Lat: -34.5875, Lng: -58.3974},
	"Caballito":        {Lat: -34.6186, Lng: -58.4421},
	"Villa Crespo":     {Lat: -34.5990, Lng: -58.4383},
	"Colegiales":       {Lat: -34.5746, Lng: -58.4493},
	"Núñez":            {Lat: -34.5453, Lng: -58.4632},
	"Puerto Madero":    {Lat: -34.6118, Lng: -58.3630},
	"San Telmo":        {Lat: -34.6218, Lng: -58.3731},
	"Monserrat":        {Lat: -34.6126, Lng: -58.3817},
	"Retiro":           {Lat: -34.5923, Lng: -58.3758},
	"Barrio Norte":     {Lat: -34.5950, Lng: -58.4010},
	"Almagro":          {Lat: -34.6064, Lng: -58.4205},
	"Boedo":            {Lat: -34.6300, Lng: -58.4190},
	"Flores":           {Lat: -34.6287, Lng: -58.4635},
	"Parque Patricios": {Lat: -34.6369, Lng: -58.4008},
	"Villa Urquiza":    {Lat: -34.5737, Lng: -58.4884},
	"Saavedra":         {Lat: -34.5520, Lng: -58.4870},
	"Villa Devoto":     {Lat: -34.6017, Lng: -58.5125},
	"Villa del Parque": {Lat: -34.6049, Lng: -58.4907},
}

// StaticProvider resolves neighborhoods to fixed centroids without any
// network access. Streets are ignored.
type StaticProvider struct {
	normalizer *utils.NeighborhoodNormalizer
}

// NewStaticProvider creates a geocoder backed by the centroid table
func NewStaticProvider(normalizer *utils.NeighborhoodNormalizer) providers.GeocodingProvider {
	return &StaticProvider{normalizer: normalizer}
}

// Geocode returns the centroid of the neighborhood, or nil when unknown
func (s *StaticProvider) Geocode(ctx context.Context, street, neighborhood string) (*entities.Coordinates, error) {
	if strings.TrimSpace(neighborhood) == "" {
		return nil, nil
	}
	canonical, ok := s.normalizer.Lookup(neighborhood)
	if !ok {
		return nil, nil
	}
	coords, ok := neighborhoodCentroids[canonical]
	if !ok {
		return nil, nil
	}
	return &coords, nil
}
