package entities

import (
	"time"
)

// PredictionStatus represents the lifecycle state of a persisted prediction
type PredictionStatus string

const (
	PredictionStatusPending PredictionStatus = "pending"
	PredictionStatusSuccess PredictionStatus = "success"
	PredictionStatusError   PredictionStatus = "error"
)

// DefaultCurrency is stored when the inference result carries no currency
const DefaultCurrency = "ARS"

// PredictionRequest is the canonical, alias-free form of a prediction request.
// Numeric attributes are nil when the caller did not supply them.
type PredictionRequest struct {
	Neighborhood string
	Street       string
	Rooms        *float64
	Bedrooms     *float64
	Bathrooms    *float64
	Garages      *float64
	Age          *float64
	Surface      *float64
	SurfaceMin   *float64
	SurfaceMax   *float64
}

// IsRange reports whether the request needs one inference call per surface bound
func (r *PredictionRequest) IsRange() bool {
	return r.SurfaceMin != nil && r.SurfaceMax != nil && *r.SurfaceMin != *r.SurfaceMax
}

// SingleSurface returns the surface used for a single-point request
func (r *PredictionRequest) SingleSurface() *float64 {
	switch {
	case r.Surface != nil:
		return r.Surface
	case r.SurfaceMin != nil:
		return r.SurfaceMin
	default:
		return r.SurfaceMax
	}
}

// Input returns the echo of the request included in responses and records
func (r *PredictionRequest) Input() PredictionInput {
	input := PredictionInput{
		Ambientes:          r.Rooms,
		MetrosCuadrados:    r.Surface,
		MetrosCuadradosMin: r.SurfaceMin,
		MetrosCuadradosMax: r.SurfaceMax,
		Dormitorios:        r.Bedrooms,
		Banos:              r.Bathrooms,
		Garajes:            r.Garages,
		Antiguedad:         r.Age,
	}
	if r.Neighborhood != "" {
		barrio := r.Neighborhood
		input.Barrio = &barrio
	}
	if r.Street != "" {
		street := r.Street
		input.Calle = &street
	}
	return input
}

// PredictionInput echoes the request attributes; absent values encode as null
type PredictionInput struct {
	Barrio             *string  `json:"barrio"`
	Ambientes          *float64 `json:"ambientes"`
	MetrosCuadrados    *float64 `json:"metrosCuadrados"`
	MetrosCuadradosMin *float64 `json:"metrosCuadradosMin"`
	MetrosCuadradosMax *float64 `json:"metrosCuadradosMax"`
	Dormitorios        *float64 `json:"dormitorios"`
	Banos              *float64 `json:"banos"`
	Garajes            *float64 `json:"garajes"`
	Antiguedad         *float64 `json:"antiguedad"`
	Calle              *string  `json:"calle"`
}

// InferenceResult holds one price (single request) or a price range (range
// request), plus the neighborhood report assets.
type InferenceResult struct {
	Prediction    *int64          `json:"prediction,omitempty"`
	PredictionMin *int64          `json:"predictionMin,omitempty"`
	PredictionMax *int64          `json:"predictionMax,omitempty"`
	Images        *ReportImages   `json:"images"`
	Metrics       map[string]any  `json:"metrics"`
	InputData     PredictionInput `json:"input_data"`
}

// Bounds returns the lower and upper price. A single prediction is both.
func (r *InferenceResult) Bounds() (lower, upper *int64) {
	if r.Prediction != nil {
		return r.Prediction, r.Prediction
	}
	return r.PredictionMin, r.PredictionMax
}

// PredictionResponse is the merged envelope returned to the client
type PredictionResponse struct {
	InferenceResult
	NearbyPlaces    *NearbyPlacesResult `json:"nearby_places"`
	PredictionID    *string             `json:"predictionId"`
	ExecutionTimeMs int64               `json:"executionTimeMs"`
	Timestamp       time.Time           `json:"timestamp"`
}

// PredictionRecord is the persisted history entry for an identified caller
type PredictionRecord struct {
	ID              string              `json:"id" db:"id"`
	CognitoSub      string              `json:"cognitoSub" db:"cognito_sub"`
	UserEmail       string              `json:"userEmail" db:"user_email"`
	Input           PredictionInput     `json:"input_data"`
	PredictionMin   *int64              `json:"predictionMin" db:"precio_cota_inferior"`
	PredictionMax   *int64              `json:"predictionMax" db:"precio_cota_superior"`
	Currency        string              `json:"moneda" db:"moneda"`
	Images          *ReportImages       `json:"images" db:"images"`
	Metrics         map[string]any      `json:"metrics" db:"metrics"`
	NearbyPlaces    *NearbyPlacesResult `json:"nearby_places" db:"nearby_places"`
	Status          PredictionStatus    `json:"status" db:"status"`
	ErrorMessage    *string             `json:"errorMessage" db:"error_message"`
	ExecutionTimeMs *int64              `json:"executionTimeMs" db:"execution_time_ms"`
	UserNotes       *string             `json:"userNotes" db:"user_notes"`
	IsFavorite      bool                `json:"isFavorite" db:"is_favorite"`
	CreatedAt       time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time           `json:"updatedAt" db:"updated_at"`
}

// OwnedBy reports whether the record belongs to the given subject
func (p *PredictionRecord) OwnedBy(sub string) bool {
	return sub != "" && p.CognitoSub == sub
}
