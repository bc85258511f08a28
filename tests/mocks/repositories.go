package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/repositories"
)

// MockPredictionRepository mocks repositories.PredictionRepository
type MockPredictionRepository struct {
	mock.Mock
}

// NewMockPredictionRepository creates a mock that asserts its expectations on cleanup
func NewMockPredictionRepository(t testingT) *MockPredictionRepository {
	m := &MockPredictionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPredictionRepository) Create(ctx context.Context, record *entities.PredictionRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockPredictionRepository) Update(ctx context.Context, id string, patch repositories.PredictionPatch) (*entities.PredictionRecord, error) {
	args := m.Called(ctx, id, patch)
	out, _ := args.Get(0).(*entities.PredictionRecord)
	return out, args.Error(1)
}

func (m *MockPredictionRepository) GetByID(ctx context.Context, id string) (*entities.PredictionRecord, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*entities.PredictionRecord)
	return out, args.Error(1)
}

func (m *MockPredictionRepository) List(ctx context.Context, filter repositories.PredictionFilter) ([]*entities.PredictionRecord, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]*entities.PredictionRecord)
	return out, args.Error(1)
}

func (m *MockPredictionRepository) ToggleFavorite(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error) {
	args := m.Called(ctx, id, ownerSub)
	out, _ := args.Get(0).(*entities.PredictionRecord)
	return out, args.Error(1)
}

func (m *MockPredictionRepository) Delete(ctx context.Context, id, ownerSub string) (bool, error) {
	args := m.Called(ctx, id, ownerSub)
	return args.Bool(0), args.Error(1)
}

func (m *MockPredictionRepository) Statistics(ctx context.Context, ownerSub string) (*repositories.PredictionStatistics, error) {
	args := m.Called(ctx, ownerSub)
	out, _ := args.Get(0).(*repositories.PredictionStatistics)
	return out, args.Error(1)
}
