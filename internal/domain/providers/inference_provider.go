package providers

import (
	"context"
)

// InferencePayload is the document the prediction function expects
type InferencePayload struct {
	TotalArea    *float64 `json:"total_area"`
	Rooms        *float64 `json:"rooms"`
	Bedrooms     *float64 `json:"bedrooms"`
	Antiquity    *float64 `json:"antiquity"`
	Neighborhood string   `json:"neighborhood"`
	Bathrooms    *float64 `json:"bathrooms"`
	Garages      *float64 `json:"garages"`
}

// InferenceProvider invokes the remote prediction function and returns its
// raw response document. Invocation failures are returned as errors;
// function-level errors embedded in the document are left to the caller.
type InferenceProvider interface {
	Invoke(ctx context.Context, payload InferencePayload) ([]byte, error)
}

// WithTotalArea returns a copy of p with the surface replaced
func (p InferencePayload) WithTotalArea(area *float64) InferencePayload {
	p.TotalArea = area
	return p
}
