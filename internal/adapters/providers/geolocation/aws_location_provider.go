package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/location"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

const (
	addressSuffix  = "Buenos Aires, Argentina"
	countryFilter  = "ARG"
	geocodeKeyBase = "geo:v1:aws:"
)

// LocationAPI is the subset of the Amazon Location client used for geocoding
type LocationAPI interface {
	SearchPlaceIndexForText(ctx context.Context, params *location.SearchPlaceIndexForTextInput, optFns ...func(*location.Options)) (*location.SearchPlaceIndexForTextOutput, error)
}

// AWSLocationProvider geocodes addresses against an Amazon Location place index
type AWSLocationProvider struct {
	client     LocationAPI
	placeIndex string
	timeout    time.Duration
	cache      providers.CacheProvider
	cacheTTL   time.Duration
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// AWSLocationOptions configures an AWSLocationProvider. Cache and Metrics may be nil.
type AWSLocationOptions struct {
	PlaceIndex string
	Timeout    time.Duration
	Cache      providers.CacheProvider
	CacheTTL   time.Duration
	Metrics    *observability.Metrics
}

// NewAWSLocationProvider creates a new Amazon Location geocoder
func NewAWSLocationProvider(client LocationAPI, opts AWSLocationOptions, logger zerolog.Logger) providers.GeocodingProvider {
	return &AWSLocationProvider{
		client:     client,
		placeIndex: opts.PlaceIndex,
		timeout:    opts.Timeout,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		metrics:    opts.Metrics,
		logger:     logger.With().Str("component", "aws_location").Logger(),
	}
}

// Geocode resolves street and neighborhood to coordinates. Without a
// neighborhood it returns nil and never calls the service.
func (p *AWSLocationProvider) Geocode(ctx context.Context, street, neighborhood string) (*entities.Coordinates, error) {
	neighborhood = strings.TrimSpace(neighborhood)
	if neighborhood == "" {
		return nil, nil
	}
	if p.placeIndex == "" {
		p.logger.Warn().Msg("place index not configured, skipping geocoding")
		return nil, nil
	}

	query := AddressQuery(street, neighborhood)
	cacheKey := geocodeKeyBase + hashKey(strings.ToLower(query))

	var cached entities.Coordinates
	if providers.GetJSON(ctx, p.cache, cacheKey, &cached) {
		observability.RecordCacheHit(ctx, p.metrics, "geocode")
		return &cached, nil
	}
	observability.RecordCacheMiss(ctx, p.metrics, "geocode")

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.Debug().Str("query", query).Msg("geocoding address")

	out, err := p.client.SearchPlaceIndexForText(ctx, &location.SearchPlaceIndexForTextInput{
		IndexName:       aws.String(p.placeIndex),
		Text:            aws.String(query),
		MaxResults:      aws.Int32(1),
		FilterCountries: []string{countryFilter},
	})
	if err != nil {
		return nil, fmt.Errorf("place index search failed: %w", err)
	}

	if len(out.Results) == 0 {
		p.logger.Info().Str("query", query).Msg("no geocoding match")
		return nil, nil
	}
	place := out.Results[0].Place
	if place == nil || place.Geometry == nil || len(place.Geometry.Point) < 2 {
		return nil, nil
	}

	// Point is [longitude, latitude]
	coords := &entities.Coordinates{
		Lat: place.Geometry.Point[1],
		Lng: place.Geometry.Point[0],
	}

	if err := providers.SetJSON(ctx, p.cache, cacheKey, coords, p.cacheTTL); err != nil {
		p.logger.Debug().Err(err).Msg("failed to cache geocode result")
	}
	return coords, nil
}

// AddressQuery builds the free-text address sent to the place index
func AddressQuery(street, neighborhood string) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(street); s != "" {
		parts = append(parts, s)
	}
	if n := strings.TrimSpace(neighborhood); n != "" {
		parts = append(parts, n)
	}
	parts = append(parts, addressSuffix)
	return strings.Join(parts, ", ")
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
