package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var palermo = entities.Coordinates{Lat: -34.5881, Lng: -58.4106}

const restaurantsResponse = `{
  "version": 0.6,
  "elements": [
    {"type": "node", "id": 1, "lat": -34.5885, "lon": -58.4110,
     "tags": {"name": "La Cabrera", "amenity": "restaurant", "cuisine": "steak_house", "addr:street": "José A. Cabrera", "addr:housenumber": "5099"}},
    {"type": "way", "id": 10, "nodes": [2, 3],
     "geometry": [{"lat": -34.5890, "lon": -58.4110}, {"lat": -34.5892, "lon": -58.4114}],
     "tags": {"name": "Café Plaza", "amenity": "cafe"}}
  ]
}`

// Node 1 is both a matched entrance and a vertex of the matched station way.
const sharedNodeResponse = `{
  "version": 0.6,
  "elements": [
    {"type": "node", "id": 1, "lat": -34.5810, "lon": -58.4210,
     "tags": {"name": "Plaza Italia", "railway": "subway_entrance"}},
    {"type": "way", "id": 2, "nodes": [1, 3],
     "bounds": {"minlat": -34.5812, "minlon": -58.4212, "maxlat": -34.5810, "maxlon": -58.4210},
     "geometry": [{"lat": -34.5810, "lon": -58.4210}, {"lat": -34.5812, "lon": -58.4212}],
     "tags": {"name": "Estación Plaza Italia", "public_transport": "station"}},
    {"type": "way", "id": 4, "nodes": [5, 6],
     "bounds": {"minlat": -34.5800, "minlon": -58.4200, "maxlat": -34.5802, "maxlon": -58.4202},
     "tags": {"name": "Terminal", "public_transport": "station"}}
  ]
}`

func serveOverpass(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBuildQuery(t *testing.T) {
	query, err := BuildQuery(entities.CategoryRestaurants, palermo, 500, 10*time.Second)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "[out:json][timeout:10];"))
	assert.Contains(t, query, `node["amenity"="restaurant"](around:500,-34.588100,-58.410600);`)
	assert.Contains(t, query, `way["amenity"="cafe"](around:500,-34.588100,-58.410600);`)
	assert.True(t, strings.HasSuffix(query, ");\nout geom;\n"))
	assert.NotContains(t, query, ">;")

	_, err = BuildQuery(entities.PlaceCategory("casinos"), palermo, 500, time.Second)
	assert.Error(t, err)
}

func TestBuildQuery_EveryCategory(t *testing.T) {
	for _, category := range entities.PlaceCategories {
		query, err := BuildQuery(category, palermo, 500, 10*time.Second)
		require.NoError(t, err, category)
		assert.Contains(t, query, "around:500", category)
	}
}

func TestOverpassAdapter_QueryCategory(t *testing.T) {
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.FormValue("data")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(restaurantsResponse))
	}))
	defer server.Close()

	adapter := NewOverpassAdapter(server.URL, 2*time.Second, zerolog.Nop())

	elements, err := adapter.QueryCategory(context.Background(), entities.CategoryRestaurants, palermo, 500)
	require.NoError(t, err)
	assert.Contains(t, received, `"amenity"="restaurant"`)

	require.Len(t, elements, 2)
	sort.Slice(elements, func(i, j int) bool { return elements[i].ID < elements[j].ID })

	assert.Equal(t, int64(1), elements[0].ID)
	assert.Equal(t, "node", elements[0].Type)
	assert.Equal(t, "La Cabrera", elements[0].Tags["name"])

	assert.Equal(t, int64(10), elements[1].ID)
	assert.Equal(t, "way", elements[1].Type)
	assert.InDelta(t, -34.5891, elements[1].Lat, 1e-9)
	assert.InDelta(t, -58.4112, elements[1].Lon, 1e-9)
}

func TestOverpassAdapter_NodeSharedWithWayKeepsTags(t *testing.T) {
	server := serveOverpass(t, sharedNodeResponse)
	adapter := NewOverpassAdapter(server.URL, 2*time.Second, zerolog.Nop())

	elements, err := adapter.QueryCategory(context.Background(), entities.CategoryTransport, palermo, 500)
	require.NoError(t, err)

	names := map[string]int64{}
	for _, e := range elements {
		names[e.Tags["name"]] = e.ID
	}
	assert.Len(t, elements, 3)
	assert.Equal(t, int64(1), names["Plaza Italia"])
	assert.Equal(t, int64(2), names["Estación Plaza Italia"])
	assert.Equal(t, int64(4), names["Terminal"])

	for _, e := range elements {
		if e.ID == 4 {
			assert.InDelta(t, -34.5801, e.Lat, 1e-9)
			assert.InDelta(t, -58.4201, e.Lon, 1e-9)
		}
	}
}

func TestOverpassAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate_limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewOverpassAdapter(server.URL, time.Second, zerolog.Nop())

	_, err := adapter.QueryCategory(context.Background(), entities.CategoryHealth, palermo, 500)
	assert.Error(t, err)
}

func TestOverpassAdapter_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	adapter := NewOverpassAdapter(server.URL, 5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := adapter.QueryCategory(ctx, entities.CategoryTransport, palermo, 500)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
