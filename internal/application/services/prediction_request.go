package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

// requestAliases lists, per canonical field, the body keys accepted for it in
// priority order.
var requestAliases = map[string][]string{
	"neighborhood": {"barrio", "neighborhood"},
	"street":       {"calle", "street"},
	"rooms":        {"ambientes", "rooms"},
	"bedrooms":     {"dormitorios", "bedrooms"},
	"bathrooms":    {"banos", "baños", "bathrooms"},
	"garages":      {"garajes", "garages"},
	"age":          {"antiguedad", "antiquity", "age"},
	"surface":      {"metrosCuadrados", "total_area", "surface_total"},
	"surface_min":  {"metrosCuadradosMin", "surface_min"},
	"surface_max":  {"metrosCuadradosMax", "surface_max"},
}

// ParsePredictionRequest folds an aliased request body into a PredictionRequest.
func ParsePredictionRequest(body map[string]any) (*entities.PredictionRequest, error) {
	req := &entities.PredictionRequest{
		Neighborhood: stringField(body, "neighborhood"),
		Street:       stringField(body, "street"),
	}

	numeric := []struct {
		field string
		dst   **float64
	}{
		{"rooms", &req.Rooms},
		{"bedrooms", &req.Bedrooms},
		{"bathrooms", &req.Bathrooms},
		{"garages", &req.Garages},
		{"age", &req.Age},
		{"surface", &req.Surface},
		{"surface_min", &req.SurfaceMin},
		{"surface_max", &req.SurfaceMax},
	}
	for _, n := range numeric {
		value, err := numberField(body, n.field)
		if err != nil {
			return nil, err
		}
		*n.dst = value
	}

	if req.Neighborhood == "" {
		return nil, apperrors.NewValidationError("barrio is required")
	}
	return req, nil
}

func lookup(body map[string]any, field string) (string, any, bool) {
	for _, key := range requestAliases[field] {
		if value, ok := body[key]; ok && value != nil {
			if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return key, value, true
		}
	}
	return "", nil, false
}

func stringField(body map[string]any, field string) string {
	_, value, ok := lookup(body, field)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func numberField(body map[string]any, field string) (*float64, error) {
	key, value, ok := lookup(body, field)
	if !ok {
		return nil, nil
	}

	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be numeric", key))
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be numeric", key))
		}
		f = parsed
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be numeric", key))
	}

	if f < 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s must not be negative", key))
	}
	return &f, nil
}
