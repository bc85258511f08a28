package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/internal/domain/repositories"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/observability"
)

// PredictionError is returned when the pipeline fails. It carries what the
// HTTP layer needs to build the failure body.
type PredictionError struct {
	Err             error
	ExecutionTimeMs int64
	PredictionID    *string
}

func (e *PredictionError) Error() string { return e.Err.Error() }

func (e *PredictionError) Unwrap() error { return e.Err }

// PredictionService runs the prediction pipeline: inference and geocoding in
// parallel, nearby places when coordinates were found, then the merged
// response. Identified callers get a persisted record of the outcome.
type PredictionService struct {
	gateway  *InferenceGateway
	geocoder providers.GeocodingProvider
	nearby   *NearbyPlacesService
	repo     repositories.PredictionRepository
	metrics  *observability.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewPredictionService creates a new prediction service. repo may be nil, in
// which case every request runs anonymously.
func NewPredictionService(
	gateway *InferenceGateway,
	geocoder providers.GeocodingProvider,
	nearby *NearbyPlacesService,
	repo repositories.PredictionRepository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *PredictionService {
	return &PredictionService{
		gateway:  gateway,
		geocoder: geocoder,
		nearby:   nearby,
		repo:     repo,
		metrics:  metrics,
		logger:   logger.With().Str("component", "prediction_service").Logger(),
		now:      time.Now,
	}
}

// Predict runs the pipeline for req. identity is nil for anonymous callers.
func (s *PredictionService) Predict(ctx context.Context, req *entities.PredictionRequest, identity *entities.Identity) (*entities.PredictionResponse, error) {
	start := s.now()
	mode := "single"
	if req.IsRange() {
		mode = "range"
	}

	ctx, span := observability.StartSpan(ctx, "PredictionService.Predict")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("prediction.mode", mode),
		attribute.String("prediction.barrio", req.Neighborhood),
		attribute.Bool("prediction.authenticated", identity != nil),
	)
	logger := observability.LoggerFromContext(ctx, s.logger)

	record := s.createPending(ctx, req, identity, start)

	fail := func(err error) error {
		elapsed := s.elapsed(start)
		observability.RecordError(span, err)
		observability.RecordPrediction(ctx, s.metrics, mode, string(entities.PredictionStatusError), s.now().Sub(start))
		logger.Error().Err(err).Int64("execution_time_ms", elapsed).Msg("prediction failed")

		failure := &PredictionError{Err: err, ExecutionTimeMs: elapsed}
		if record != nil {
			failure.PredictionID = &record.ID
			s.markFailed(ctx, record.ID, err, elapsed)
		}
		return failure
	}

	var coords *entities.Coordinates
	geocoded := make(chan struct{})
	go func() {
		defer close(geocoded)
		coords = s.geocode(ctx, req)
	}()

	inference, err := s.gateway.Predict(ctx, req)
	<-geocoded
	if err != nil {
		return nil, fail(err)
	}

	var nearby *entities.NearbyPlacesResult
	if coords != nil && s.nearby != nil {
		nearby = s.nearby.Nearby(ctx, *coords)
	}

	response := &entities.PredictionResponse{
		InferenceResult: *inference,
		NearbyPlaces:    nearby,
		ExecutionTimeMs: s.elapsed(start),
		Timestamp:       s.now().UTC(),
	}

	if record != nil {
		response.PredictionID = &record.ID
		if err := s.markSucceeded(ctx, record.ID, response); err != nil {
			return nil, fail(err)
		}
	}

	observability.RecordPrediction(ctx, s.metrics, mode, string(entities.PredictionStatusSuccess), s.now().Sub(start))
	logger.Info().
		Str("mode", mode).
		Bool("coordinates", coords != nil).
		Int64("execution_time_ms", response.ExecutionTimeMs).
		Msg("prediction completed")
	return response, nil
}

func (s *PredictionService) geocode(ctx context.Context, req *entities.PredictionRequest) *entities.Coordinates {
	if s.geocoder == nil {
		return nil
	}
	coords, err := s.geocoder.Geocode(ctx, req.Street, req.Neighborhood)
	if err != nil {
		s.logger.Warn().Err(err).Str("barrio", req.Neighborhood).Msg("geocoding failed, continuing without coordinates")
		return nil
	}
	return coords
}

// createPending stores the pending record of an identified caller. A failed
// insert downgrades the request to anonymous.
func (s *PredictionService) createPending(ctx context.Context, req *entities.PredictionRequest, identity *entities.Identity, start time.Time) *entities.PredictionRecord {
	if identity == nil || identity.Sub == "" || s.repo == nil {
		return nil
	}
	record := &entities.PredictionRecord{
		ID:         uuid.NewString(),
		CognitoSub: identity.Sub,
		UserEmail:  identity.Email,
		Input:      req.Input(),
		Currency:   entities.DefaultCurrency,
		Status:     entities.PredictionStatusPending,
		CreatedAt:  start,
		UpdatedAt:  start,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("cognito_sub", identity.Sub).Msg("failed to create pending prediction record")
		return nil
	}
	return record
}

func (s *PredictionService) markSucceeded(ctx context.Context, id string, response *entities.PredictionResponse) error {
	lower, upper := response.Bounds()
	status := entities.PredictionStatusSuccess
	currency := entities.DefaultCurrency
	elapsed := response.ExecutionTimeMs

	_, err := s.repo.Update(ctx, id, repositories.PredictionPatch{
		Status:          &status,
		PredictionMin:   lower,
		PredictionMax:   upper,
		Currency:        &currency,
		Images:          response.Images,
		Metrics:         response.Metrics,
		NearbyPlaces:    response.NearbyPlaces,
		ExecutionTimeMs: &elapsed,
	})
	return err
}

// markFailed moves the record to error. Its own failure is only logged so the
// caller still sees the original error.
func (s *PredictionService) markFailed(ctx context.Context, id string, cause error, elapsed int64) {
	status := entities.PredictionStatusError
	message := cause.Error()
	_, err := s.repo.Update(context.WithoutCancel(ctx), id, repositories.PredictionPatch{
		Status:          &status,
		ErrorMessage:    &message,
		ExecutionTimeMs: &elapsed,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("prediction_id", id).Msg("failed to record prediction error")
	}
}

func (s *PredictionService) elapsed(start time.Time) int64 {
	return s.now().Sub(start).Milliseconds()
}
