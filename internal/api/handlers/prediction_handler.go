package handlers

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/observatorio/rentpredict/backend/internal/api/middleware"
	"github.com/observatorio/rentpredict/backend/internal/application/services"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

const maxPredictionBody = 64 << 10

//go:embed schemas/prediction_request.json
var predictionRequestSchemaJSON string

var predictionRequestSchema = jsonschema.MustCompileString("prediction_request.json", predictionRequestSchemaJSON)

// PredictionService defines the prediction pipeline used by the handler
type PredictionService interface {
	Predict(ctx context.Context, req *entities.PredictionRequest, identity *entities.Identity) (*entities.PredictionResponse, error)
}

// PredictionHandler handles rent prediction requests
type PredictionHandler struct {
	service PredictionService
	logger  zerolog.Logger
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(service PredictionService, logger zerolog.Logger) *PredictionHandler {
	return &PredictionHandler{
		service: service,
		logger:  logger.With().Str("component", "prediction_handler").Logger(),
	}
}

// Predict handles POST /rent/predict
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := decodeRequestBody(w, r)
	if err != nil {
		respondPredictionFailure(w, http.StatusBadRequest, "invalid request payload", time.Since(start).Milliseconds())
		return
	}
	if err := predictionRequestSchema.Validate(body); err != nil {
		respondPredictionFailure(w, http.StatusBadRequest, schemaMessage(err), time.Since(start).Milliseconds())
		return
	}

	req, err := services.ParsePredictionRequest(body)
	if err != nil {
		respondPredictionFailure(w, statusFor(err), apperrors.MessageOf(err), time.Since(start).Milliseconds())
		return
	}

	response, err := h.service.Predict(r.Context(), req, middleware.IdentityFromContext(r.Context()))
	if err != nil {
		elapsed := time.Since(start).Milliseconds()
		var failure *services.PredictionError
		if errors.As(err, &failure) {
			elapsed = failure.ExecutionTimeMs
		}
		respondPredictionFailure(w, http.StatusInternalServerError, apperrors.MessageOf(err), elapsed)
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

func respondPredictionFailure(w http.ResponseWriter, status int, message string, elapsedMs int64) {
	respondWithJSON(w, status, map[string]interface{}{
		"error":           true,
		"message":         message,
		"executionTimeMs": elapsedMs,
	})
}

func decodeRequestBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictionBody))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("empty body")
	}
	return body, nil
}

// schemaMessage reduces a validation error to its first leaf cause
func schemaMessage(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	field := strings.TrimPrefix(verr.InstanceLocation, "/")
	if field == "" {
		return verr.Message
	}
	return fmt.Sprintf("%s: %s", field, verr.Message)
}
