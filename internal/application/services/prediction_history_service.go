package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/repositories"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

const (
	defaultRecentLimit = 10
	maxListLimit       = 100
)

// PredictionHistoryService exposes a caller's stored predictions
type PredictionHistoryService struct {
	repo   repositories.PredictionRepository
	logger zerolog.Logger
}

// NewPredictionHistoryService creates a new prediction history service
func NewPredictionHistoryService(repo repositories.PredictionRepository, logger zerolog.Logger) *PredictionHistoryService {
	return &PredictionHistoryService{
		repo:   repo,
		logger: logger.With().Str("component", "prediction_history").Logger(),
	}
}

// List returns the caller's records matching filter, newest first
func (s *PredictionHistoryService) List(ctx context.Context, ownerSub string, filter repositories.PredictionFilter) ([]*entities.PredictionRecord, error) {
	filter.CognitoSub = ownerSub
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Recent returns the caller's latest records. limit defaults to 10.
func (s *PredictionHistoryService) Recent(ctx context.Context, ownerSub string, limit int) ([]*entities.PredictionRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.List(ctx, ownerSub, repositories.PredictionFilter{Limit: limit})
}

// Favorites returns the caller's favorite records
func (s *PredictionHistoryService) Favorites(ctx context.Context, ownerSub string) ([]*entities.PredictionRecord, error) {
	favorite := true
	return s.List(ctx, ownerSub, repositories.PredictionFilter{IsFavorite: &favorite})
}

// Statistics summarizes the caller's history
func (s *PredictionHistoryService) Statistics(ctx context.Context, ownerSub string) (*repositories.PredictionStatistics, error) {
	return s.repo.Statistics(ctx, ownerSub)
}

// Get returns one record. Unknown ids are NOT_FOUND and records of other
// callers are FORBIDDEN.
func (s *PredictionHistoryService) Get(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFoundError("prediction not found")
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.OwnedBy(ownerSub) {
		return nil, apperrors.NewForbiddenError("prediction belongs to another user")
	}
	return record, nil
}

// ToggleFavorite flips the favorite flag of one of the caller's records
func (s *PredictionHistoryService) ToggleFavorite(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error) {
	if _, err := s.Get(ctx, id, ownerSub); err != nil {
		return nil, err
	}
	return s.repo.ToggleFavorite(ctx, id, ownerSub)
}

// UpdateNotes replaces the caller's notes on one of their records
func (s *PredictionHistoryService) UpdateNotes(ctx context.Context, id, ownerSub, notes string) (*entities.PredictionRecord, error) {
	if _, err := s.Get(ctx, id, ownerSub); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, repositories.PredictionPatch{UserNotes: &notes})
}

// Delete removes one of the caller's records
func (s *PredictionHistoryService) Delete(ctx context.Context, id, ownerSub string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFoundError("prediction not found")
	}
	deleted, err := s.repo.Delete(ctx, id, ownerSub)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFoundError("prediction not found")
	}
	s.logger.Info().Str("prediction_id", id).Msg("prediction deleted")
	return nil
}
