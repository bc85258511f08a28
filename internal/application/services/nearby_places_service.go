package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/observability"
)

const (
	// DefaultSearchRadius is the points-of-interest search radius in meters
	DefaultSearchRadius = 500

	earthRadiusMeters  = 6371e3
	addressPlaceholder = "Dirección no disponible"
	geohashPrecision   = 8
	nearbyCacheFamily  = "nearby"
)

// secondaryTypeTags are appended to a place's types after its category
var secondaryTypeTags = []string{"amenity", "shop", "leisure", "cuisine"}

// NearbyPlacesOptions configures the aggregator
type NearbyPlacesOptions struct {
	RadiusMeters    int
	CategoryTimeout time.Duration
	CacheTTL        time.Duration
}

// NearbyPlacesService queries the six place categories around a point
type NearbyPlacesService struct {
	places  providers.PlacesProvider
	cache   providers.CacheProvider
	opts    NearbyPlacesOptions
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewNearbyPlacesService creates a new nearby places service. cache may be nil.
func NewNearbyPlacesService(
	places providers.PlacesProvider,
	cache providers.CacheProvider,
	opts NearbyPlacesOptions,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *NearbyPlacesService {
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = DefaultSearchRadius
	}
	if opts.CategoryTimeout <= 0 {
		opts.CategoryTimeout = 10 * time.Second
	}
	return &NearbyPlacesService{
		places:  places,
		cache:   cache,
		opts:    opts,
		metrics: metrics,
		logger:  logger.With().Str("component", "nearby_places").Logger(),
	}
}

// Nearby returns the places of every category around at. It never fails: a
// category whose query fails comes back empty and the others are unaffected.
func (s *NearbyPlacesService) Nearby(ctx context.Context, at entities.Coordinates) *entities.NearbyPlacesResult {
	ctx, span := observability.StartSpan(ctx, "NearbyPlacesService.Nearby")
	defer span.End()

	result := entities.NewNearbyPlacesResult(at)
	if s.places == nil {
		return result
	}

	key := s.cacheKey(at)
	var cached entities.NearbyPlacesResult
	if providers.GetJSON(ctx, s.cache, key, &cached) {
		observability.RecordCacheHit(ctx, s.metrics, nearbyCacheFamily)
		return relocate(&cached, at)
	}
	observability.RecordCacheMiss(ctx, s.metrics, nearbyCacheFamily)

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed int
	)
	for _, category := range entities.PlaceCategories {
		wg.Add(1)
		go func(category entities.PlaceCategory) {
			defer wg.Done()
			places, err := s.queryCategory(ctx, category, at)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				observability.RecordPlacesFailure(ctx, s.metrics, string(category))
				s.logger.Warn().Err(err).Str("category", string(category)).Msg("category query failed")
				return
			}
			result.Set(category, places)
		}(category)
	}
	wg.Wait()

	s.logger.Debug().
		Int("total", result.Summary.Total).
		Int("failed_categories", failed).
		Msg("nearby places aggregated")

	if failed == 0 && s.opts.CacheTTL > 0 {
		if err := providers.SetJSON(ctx, s.cache, key, result, s.opts.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache nearby places")
		}
	}
	return result
}

func (s *NearbyPlacesService) queryCategory(ctx context.Context, category entities.PlaceCategory, at entities.Coordinates) (places []entities.NearbyPlace, err error) {
	defer func() {
		if r := recover(); r != nil {
			places, err = nil, fmt.Errorf("category %s panicked: %v", category, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.CategoryTimeout)
	defer cancel()

	elements, err := s.places.QueryCategory(ctx, category, at, s.opts.RadiusMeters)
	if err != nil {
		return nil, err
	}

	places = make([]entities.NearbyPlace, 0, len(elements))
	for _, el := range elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			continue
		}
		location := entities.Coordinates{Lat: el.Lat, Lng: el.Lon}
		places = append(places, entities.NearbyPlace{
			Name:     name,
			Address:  formatAddress(el.Tags),
			Distance: DistanceMeters(at, location),
			Types:    placeTypes(category, el.Tags),
			Location: location,
			OSMID:    el.ID,
			OSMType:  el.Type,
		})
	}
	sortByDistance(places)
	return places, nil
}

func (s *NearbyPlacesService) cacheKey(at entities.Coordinates) string {
	return fmt.Sprintf("nearby:v1:%s:%d", geohash.EncodeWithPrecision(at.Lat, at.Lng, geohashPrecision), s.opts.RadiusMeters)
}

// relocate recomputes distances of a cached result for a point in the same cell
func relocate(cached *entities.NearbyPlacesResult, at entities.Coordinates) *entities.NearbyPlacesResult {
	result := entities.NewNearbyPlacesResult(at)
	for _, category := range entities.PlaceCategories {
		places := append([]entities.NearbyPlace(nil), cached.Places(category)...)
		for i := range places {
			places[i].Distance = DistanceMeters(at, places[i].Location)
		}
		sortByDistance(places)
		result.Set(category, places)
	}
	return result
}

func sortByDistance(places []entities.NearbyPlace) {
	sort.SliceStable(places, func(i, j int) bool {
		return places[i].Distance < places[j].Distance
	})
}

// DistanceMeters returns the haversine distance between two points, rounded
// to the nearest meter.
func DistanceMeters(from, to entities.Coordinates) int {
	lat1 := from.Lat * math.Pi / 180
	lat2 := to.Lat * math.Pi / 180
	dLat := (to.Lat - from.Lat) * math.Pi / 180
	dLng := (to.Lng - from.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return int(math.Round(earthRadiusMeters * c))
}

func formatAddress(tags map[string]string) string {
	parts := make([]string, 0, 4)
	for _, key := range []string{"addr:street", "addr:housenumber", "addr:suburb", "addr:city"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return addressPlaceholder
	}
	return strings.Join(parts, ", ")
}

func placeTypes(category entities.PlaceCategory, tags map[string]string) []string {
	types := []string{string(category)}
	seen := map[string]bool{string(category): true}
	for _, key := range secondaryTypeTags {
		v := strings.TrimSpace(tags[key])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		types = append(types, v)
	}
	return types
}
