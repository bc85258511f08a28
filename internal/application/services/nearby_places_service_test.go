package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/observatorio/rentpredict/backend/internal/adapters/cache"
	"github.com/observatorio/rentpredict/backend/internal/application/services"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/tests/mocks"
)

var palermo = entities.Coordinates{Lat: -34.5889, Lng: -58.4306}

func named(id int64, name string, lat, lon float64, tags map[string]string) providers.OSMElement {
	all := map[string]string{"name": name}
	for k, v := range tags {
		all[k] = v
	}
	return providers.OSMElement{ID: id, Type: "node", Lat: lat, Lon: lon, Tags: all}
}

func restaurants() []providers.OSMElement {
	return []providers.OSMElement{
		named(3, "La Cabrera", -34.5910, -58.4306, map[string]string{
			"amenity": "restaurant", "cuisine": "steak_house",
			"addr:street": "José A. Cabrera", "addr:housenumber": "5099", "addr:city": "Buenos Aires",
		}),
		named(1, "Pizzería Güerrin", -34.5890, -58.4306, map[string]string{"amenity": "restaurant", "cuisine": "pizza"}),
		{ID: 9, Type: "node", Lat: -34.5889, Lon: -58.4300, Tags: map[string]string{"amenity": "restaurant"}},
		named(2, "Don Julio", -34.5900, -58.4306, map[string]string{"amenity": "restaurant", "shop": "restaurant"}),
	}
}

func TestDistanceMeters(t *testing.T) {
	origin := entities.Coordinates{Lat: 0, Lng: 0}

	assert.Equal(t, 0, services.DistanceMeters(origin, origin))
	assert.Equal(t, 1112, services.DistanceMeters(origin, entities.Coordinates{Lat: 0.01, Lng: 0}))
	assert.Equal(t, 1112, services.DistanceMeters(entities.Coordinates{Lat: 0.01, Lng: 0}, origin))
	assert.Equal(t, 111195, services.DistanceMeters(origin, entities.Coordinates{Lat: 1, Lng: 0}))
}

func TestNearbyPlaces_OneCategoryFails(t *testing.T) {
	places := mocks.NewMockPlacesProvider(t)
	svc := services.NewNearbyPlacesService(places, nil, services.NearbyPlacesOptions{}, nil, zerolog.Nop())

	places.On("QueryCategory", mock.Anything, entities.CategoryTransport, palermo, 500).
		Return(nil, errors.New("overpass timeout")).Once()
	for _, c := range []entities.PlaceCategory{
		entities.CategoryPointsOfInterest, entities.CategoryAdministrative,
		entities.CategoryEducation, entities.CategoryHealth,
	} {
		places.On("QueryCategory", mock.Anything, c, palermo, 500).
			Return([]providers.OSMElement{named(10, "Lugar "+string(c), -34.589, -58.431, nil)}, nil).Once()
	}
	places.On("QueryCategory", mock.Anything, entities.CategoryRestaurants, palermo, 500).
		Return(restaurants(), nil).Once()

	result := svc.Nearby(context.Background(), palermo)

	require.NotNil(t, result)
	assert.NotNil(t, result.Transporte)
	assert.Empty(t, result.Transporte)
	assert.Equal(t, 0, result.Summary.Transporte)
	assert.Equal(t, 3, result.Summary.Restaurantes)
	assert.Equal(t, 7, result.Summary.Total)
	assert.Equal(t, palermo, result.Coordinates)

	got := result.Restaurantes
	assert.Equal(t, []string{"Pizzería Güerrin", "Don Julio", "La Cabrera"}, []string{got[0].Name, got[1].Name, got[2].Name})
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)
	assert.LessOrEqual(t, got[1].Distance, got[2].Distance)

	assert.Equal(t, "Dirección no disponible", got[0].Address)
	assert.Equal(t, "José A. Cabrera, 5099, Buenos Aires", got[2].Address)
	assert.Equal(t, []string{"restaurantes", "restaurant", "pizza"}, got[0].Types)
	assert.Equal(t, []string{"restaurantes", "restaurant"}, got[1].Types)
	assert.Equal(t, int64(3), got[2].OSMID)
	assert.Equal(t, "node", got[2].OSMType)
}

func TestNearbyPlaces_CategoryTimeoutIsIsolated(t *testing.T) {
	places := mocks.NewMockPlacesProvider(t)
	svc := services.NewNearbyPlacesService(places, nil, services.NearbyPlacesOptions{
		CategoryTimeout: 20 * time.Millisecond,
	}, nil, zerolog.Nop())

	for _, c := range entities.PlaceCategories {
		call := places.On("QueryCategory", mock.Anything, c, palermo, 500).Once()
		if c == entities.CategoryHealth {
			call.Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).Return(nil, context.DeadlineExceeded)
			continue
		}
		call.Return([]providers.OSMElement{named(1, "ok", -34.589, -58.431, nil)}, nil)
	}

	result := svc.Nearby(context.Background(), palermo)

	assert.Empty(t, result.CentrosSalud)
	assert.Equal(t, 5, result.Summary.Total)
}

func TestNearbyPlaces_NoProviderIsStructurallyComplete(t *testing.T) {
	svc := services.NewNearbyPlacesService(nil, nil, services.NearbyPlacesOptions{}, nil, zerolog.Nop())

	result := svc.Nearby(context.Background(), palermo)

	for _, c := range entities.PlaceCategories {
		assert.NotNil(t, result.Places(c), string(c))
	}
	assert.Zero(t, result.Summary.Total)
}

func TestNearbyPlaces_CachesCompleteResults(t *testing.T) {
	memory, err := cache.NewMemoryAdapter(16)
	require.NoError(t, err)
	places := mocks.NewMockPlacesProvider(t)
	svc := services.NewNearbyPlacesService(places, memory, services.NearbyPlacesOptions{CacheTTL: time.Hour}, nil, zerolog.Nop())

	for _, c := range entities.PlaceCategories {
		elements := []providers.OSMElement{}
		if c == entities.CategoryRestaurants {
			elements = restaurants()
		}
		places.On("QueryCategory", mock.Anything, c, palermo, 500).Return(elements, nil).Once()
	}

	first := svc.Nearby(context.Background(), palermo)
	lat, lng := geohash.BoundingBox(geohash.EncodeWithPrecision(palermo.Lat, palermo.Lng, 8)).Center()
	nearby := entities.Coordinates{Lat: lat, Lng: lng}
	second := svc.Nearby(context.Background(), nearby)

	places.AssertNumberOfCalls(t, "QueryCategory", len(entities.PlaceCategories))
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, nearby, second.Coordinates)
	for _, p := range second.Restaurantes {
		assert.Equal(t, services.DistanceMeters(nearby, p.Location), p.Distance)
	}
}
