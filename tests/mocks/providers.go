// Package mocks holds testify mocks of the domain ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockInferenceProvider mocks providers.InferenceProvider
type MockInferenceProvider struct {
	mock.Mock
}

// NewMockInferenceProvider creates a mock that asserts its expectations on cleanup
func NewMockInferenceProvider(t testingT) *MockInferenceProvider {
	m := &MockInferenceProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockInferenceProvider) Invoke(ctx context.Context, payload providers.InferencePayload) ([]byte, error) {
	args := m.Called(ctx, payload)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

// MockGeocodingProvider mocks providers.GeocodingProvider
type MockGeocodingProvider struct {
	mock.Mock
}

// NewMockGeocodingProvider creates a mock that asserts its expectations on cleanup
func NewMockGeocodingProvider(t testingT) *MockGeocodingProvider {
	m := &MockGeocodingProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockGeocodingProvider) Geocode(ctx context.Context, street, neighborhood string) (*entities.Coordinates, error) {
	args := m.Called(ctx, street, neighborhood)
	out, _ := args.Get(0).(*entities.Coordinates)
	return out, args.Error(1)
}

// MockPlacesProvider mocks providers.PlacesProvider
type MockPlacesProvider struct {
	mock.Mock
}

// NewMockPlacesProvider creates a mock that asserts its expectations on cleanup
func NewMockPlacesProvider(t testingT) *MockPlacesProvider {
	m := &MockPlacesProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPlacesProvider) QueryCategory(ctx context.Context, category entities.PlaceCategory, center entities.Coordinates, radiusMeters int) ([]providers.OSMElement, error) {
	args := m.Called(ctx, category, center, radiusMeters)
	out, _ := args.Get(0).([]providers.OSMElement)
	return out, args.Error(1)
}

// MockReportProvider mocks providers.ReportProvider
type MockReportProvider struct {
	mock.Mock
}

// NewMockReportProvider creates a mock that asserts its expectations on cleanup
func NewMockReportProvider(t testingT) *MockReportProvider {
	m := &MockReportProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockReportProvider) ReportImages(ctx context.Context, barrio string, period time.Time) (*entities.ReportImages, error) {
	args := m.Called(ctx, barrio, period)
	out, _ := args.Get(0).(*entities.ReportImages)
	return out, args.Error(1)
}

func (m *MockReportProvider) NeighborhoodMetrics(ctx context.Context, barrio string, period time.Time) (map[string]any, error) {
	args := m.Called(ctx, barrio, period)
	out, _ := args.Get(0).(map[string]any)
	return out, args.Error(1)
}

// MockTokenVerifier mocks providers.TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

// NewMockTokenVerifier creates a mock that asserts its expectations on cleanup
func NewMockTokenVerifier(t testingT) *MockTokenVerifier {
	m := &MockTokenVerifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenVerifier) Verify(ctx context.Context, token string) (*entities.Identity, error) {
	args := m.Called(ctx, token)
	out, _ := args.Get(0).(*entities.Identity)
	return out, args.Error(1)
}

// MockUserDirectory mocks providers.UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

// NewMockUserDirectory creates a mock that asserts its expectations on cleanup
func NewMockUserDirectory(t testingT) *MockUserDirectory {
	m := &MockUserDirectory{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserDirectory) SignUp(ctx context.Context, reg entities.Registration) (*entities.SignUpResult, error) {
	args := m.Called(ctx, reg)
	out, _ := args.Get(0).(*entities.SignUpResult)
	return out, args.Error(1)
}

func (m *MockUserDirectory) ConfirmSignUp(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *MockUserDirectory) Login(ctx context.Context, email, password string) (*entities.AuthTokens, error) {
	args := m.Called(ctx, email, password)
	out, _ := args.Get(0).(*entities.AuthTokens)
	return out, args.Error(1)
}

func (m *MockUserDirectory) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	return m.Called(ctx, accessToken, oldPassword, newPassword).Error(0)
}

func (m *MockUserDirectory) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserDirectory) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	return m.Called(ctx, email, code, newPassword).Error(0)
}

func (m *MockUserDirectory) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *MockUserDirectory) GetUser(ctx context.Context, username string) (*entities.UserAccount, error) {
	args := m.Called(ctx, username)
	out, _ := args.Get(0).(*entities.UserAccount)
	return out, args.Error(1)
}

func (m *MockUserDirectory) UpdateAttributes(ctx context.Context, username string, attrs map[string]string) error {
	return m.Called(ctx, username, attrs).Error(0)
}

func (m *MockUserDirectory) DisableUser(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockUserDirectory) ListUsers(ctx context.Context, limit int32, paginationToken string) (*entities.UserPage, error) {
	args := m.Called(ctx, limit, paginationToken)
	out, _ := args.Get(0).(*entities.UserPage)
	return out, args.Error(1)
}
