package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/rs/zerolog"
	"github.com/serjvanilla/go-overpass"
	"github.com/sony/gobreaker"
)

// selector is one tag filter of a category query
type selector struct {
	element string
	key     string
	value   string
}

var categorySelectors = map[entities.PlaceCategory][]selector{
	entities.CategoryTransport: {
		{"node", "public_transport", "station"},
		{"node", "public_transport", "stop_position"},
		{"node", "railway", "station"},
		{"node", "railway", "subway_entrance"},
		{"node", "highway", "bus_stop"},
		{"way", "public_transport", "station"},
	},
	entities.CategoryPointsOfInterest: {
		{"node", "leisure", "park"},
		{"node", "leisure", "garden"},
		{"node", "leisure", "playground"},
		{"node", "tourism", "attraction"},
		{"node", "tourism", "museum"},
		{"node", "tourism", "viewpoint"},
		{"way", "leisure", "park"},
		{"way", "leisure", "garden"},
		{"way", "tourism", "attraction"},
	},
	entities.CategoryAdministrative: {
		{"node", "amenity", "bank"},
		{"node", "amenity", "atm"},
		{"node", "office", "government"},
		{"node", "amenity", "townhall"},
		{"node", "amenity", "post_office"},
		{"node", "amenity", "police"},
		{"way", "amenity", "bank"},
		{"way", "office", "government"},
		{"way", "amenity", "townhall"},
	},
	entities.CategoryEducation: {
		{"node", "amenity", "school"},
		{"node", "amenity", "university"},
		{"node", "amenity", "college"},
		{"node", "amenity", "kindergarten"},
		{"way", "amenity", "school"},
		{"way", "amenity", "university"},
		{"way", "amenity", "college"},
	},
	entities.CategoryHealth: {
		{"node", "amenity", "hospital"},
		{"node", "amenity", "clinic"},
		{"node", "amenity", "pharmacy"},
		{"node", "amenity", "doctors"},
		{"node", "healthcare", "hospital"},
		{"node", "healthcare", "clinic"},
		{"way", "amenity", "hospital"},
		{"way", "amenity", "clinic"},
	},
	entities.CategoryRestaurants: {
		{"node", "amenity", "restaurant"},
		{"node", "amenity", "cafe"},
		{"node", "amenity", "fast_food"},
		{"node", "amenity", "bar"},
		{"way", "amenity", "restaurant"},
		{"way", "amenity", "cafe"},
	},
}

// BuildQuery renders the Overpass QL of one category around center. Ways carry
// their inline geometry so member nodes never come back as separate elements.
func BuildQuery(category entities.PlaceCategory, center entities.Coordinates, radiusMeters int, timeout time.Duration) (string, error) {
	selectors, ok := categorySelectors[category]
	if !ok {
		return "", fmt.Errorf("unknown place category %q", category)
	}

	seconds := int(timeout.Seconds())
	if seconds < 1 {
		seconds = 10
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", seconds)
	for _, s := range selectors {
		fmt.Fprintf(&b, "  %s[\"%s\"=\"%s\"](around:%d,%f,%f);\n", s.element, s.key, s.value, radiusMeters, center.Lat, center.Lng)
	}
	b.WriteString(");\nout geom;\n")
	return b.String(), nil
}

// OverpassAdapter queries the OpenStreetMap Overpass API
type OverpassAdapter struct {
	client  *overpass.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  zerolog.Logger
}

// NewOverpassAdapter creates a new Overpass adapter. Up to six category
// queries run against the endpoint at once.
func NewOverpassAdapter(endpoint string, timeout time.Duration, logger zerolog.Logger) providers.PlacesProvider {
	httpClient := &http.Client{Timeout: timeout}
	client := overpass.NewWithSettings(endpoint, len(entities.PlaceCategories), httpClient)
	logger = logger.With().Str("component", "overpass").Logger()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "overpass",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 12
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("overpass circuit state changed")
		},
	})

	return &OverpassAdapter{
		client:  &client,
		breaker: breaker,
		timeout: timeout,
		logger:  logger,
	}
}

// QueryCategory returns the named elements of one category around center
func (a *OverpassAdapter) QueryCategory(ctx context.Context, category entities.PlaceCategory, center entities.Coordinates, radiusMeters int) ([]providers.OSMElement, error) {
	query, err := BuildQuery(category, center, radiusMeters, a.timeout)
	if err != nil {
		return nil, err
	}

	result, err := a.execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("overpass %s query failed: %w", category, err)
	}
	return convertElements(result), nil
}

type queryOutcome struct {
	result overpass.Result
	err    error
}

// execute runs query through the breaker. The client has no context support,
// so the call is abandoned (not cancelled) when ctx ends first; the HTTP
// client timeout bounds the leftover goroutine.
func (a *OverpassAdapter) execute(ctx context.Context, query string) (overpass.Result, error) {
	done := make(chan queryOutcome, 1)
	go func() {
		res, err := a.breaker.Execute(func() (interface{}, error) {
			return a.client.Query(query)
		})
		if err != nil {
			done <- queryOutcome{err: err}
			return
		}
		done <- queryOutcome{result: res.(overpass.Result)}
	}()

	select {
	case <-ctx.Done():
		return overpass.Result{}, ctx.Err()
	case out := <-done:
		if errors.Is(out.err, gobreaker.ErrOpenState) {
			a.logger.Debug().Msg("overpass circuit open, skipping query")
		}
		return out.result, out.err
	}
}

func convertElements(result overpass.Result) []providers.OSMElement {
	elements := make([]providers.OSMElement, 0, len(result.Nodes)+len(result.Ways))

	for _, node := range result.Nodes {
		if len(node.Tags) == 0 {
			continue
		}
		elements = append(elements, providers.OSMElement{
			ID:   node.ID,
			Type: string(overpass.ElementTypeNode),
			Lat:  node.Lat,
			Lon:  node.Lon,
			Tags: node.Tags,
		})
	}

	for _, way := range result.Ways {
		center, ok := wayCenter(way)
		if !ok {
			continue
		}
		elements = append(elements, providers.OSMElement{
			ID:   way.ID,
			Type: string(overpass.ElementTypeWay),
			Lat:  center.Lat,
			Lon:  center.Lon,
			Tags: way.Tags,
		})
	}

	return elements
}

// wayCenter averages the vertices of the way geometry, falling back to the
// middle of its bounds.
func wayCenter(way *overpass.Way) (overpass.Point, bool) {
	if len(way.Geometry) > 0 {
		var lat, lon float64
		for _, p := range way.Geometry {
			lat += p.Lat
			lon += p.Lon
		}
		n := float64(len(way.Geometry))
		return overpass.Point{Lat: lat / n, Lon: lon / n}, true
	}
	if way.Bounds != nil {
		return overpass.Point{
			Lat: (way.Bounds.Min.Lat + way.Bounds.Max.Lat) / 2,
			Lon: (way.Bounds.Min.Lon + way.Bounds.Max.Lon) / 2,
		}, true
	}
	return overpass.Point{}, false
}
