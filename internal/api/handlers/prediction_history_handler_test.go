package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observatorio/rentpredict/backend/internal/api/handlers"
	"github.com/observatorio/rentpredict/backend/internal/api/middleware"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/repositories"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

type stubHistoryService struct {
	owner   string
	filter  repositories.PredictionFilter
	notes   string
	records []*entities.PredictionRecord
	record  *entities.PredictionRecord
	err     error
}

func (s *stubHistoryService) List(ctx context.Context, ownerSub string, filter repositories.PredictionFilter) ([]*entities.PredictionRecord, error) {
	s.owner, s.filter = ownerSub, filter
	return s.records, s.err
}

func (s *stubHistoryService) Recent(ctx context.Context, ownerSub string, limit int) ([]*entities.PredictionRecord, error) {
	s.owner, s.filter.Limit = ownerSub, limit
	return s.records, s.err
}

func (s *stubHistoryService) Favorites(ctx context.Context, ownerSub string) ([]*entities.PredictionRecord, error) {
	s.owner = ownerSub
	return s.records, s.err
}

func (s *stubHistoryService) Statistics(ctx context.Context, ownerSub string) (*repositories.PredictionStatistics, error) {
	s.owner = ownerSub
	return &repositories.PredictionStatistics{Total: 3, Successful: 2, Failed: 1}, s.err
}

func (s *stubHistoryService) Get(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error) {
	s.owner = ownerSub
	return s.record, s.err
}

func (s *stubHistoryService) ToggleFavorite(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error) {
	s.owner = ownerSub
	return s.record, s.err
}

func (s *stubHistoryService) UpdateNotes(ctx context.Context, id, ownerSub, notes string) (*entities.PredictionRecord, error) {
	s.owner, s.notes = ownerSub, notes
	return s.record, s.err
}

func (s *stubHistoryService) Delete(ctx context.Context, id, ownerSub string) error {
	s.owner = ownerSub
	return s.err
}

// serve routes a request through a mux so path values resolve
func serve(pattern string, h http.HandlerFunc, req *http.Request, sub string) *httptest.ResponseRecorder {
	if sub != "" {
		req = req.WithContext(middleware.WithIdentity(req.Context(), &entities.Identity{Sub: sub}))
	}
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHistoryHandler_ListParsesFilters(t *testing.T) {
	service := &stubHistoryService{records: []*entities.PredictionRecord{{ID: "a"}, {ID: "b"}}}
	handler := handlers.NewPredictionHistoryHandler(service, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet,
		"/predictions?status=success&barrio=Palermo&dormitorios=2&isFavorite=true&dateFrom=2024-01-01&minPrecio=100000&limit=5&offset=10", nil)
	w := serve("GET /predictions", handler.List, req, "owner")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Predicciones obtenidas exitosamente", body["message"])
	assert.Equal(t, float64(2), body["total"])

	assert.Equal(t, "owner", service.owner)
	f := service.filter
	assert.Equal(t, entities.PredictionStatusSuccess, f.Status)
	assert.Equal(t, "Palermo", f.Barrio)
	assert.Equal(t, 2, *f.Dormitorios)
	assert.True(t, *f.IsFavorite)
	assert.Equal(t, 2024, f.DateFrom.Year())
	assert.Nil(t, f.DateTo)
	assert.Equal(t, 100000.0, *f.MinPrice)
	assert.Equal(t, 5, f.Limit)
	assert.Equal(t, 10, f.Offset)
}

func TestHistoryHandler_ListRejectsBadFilter(t *testing.T) {
	handler := handlers.NewPredictionHistoryHandler(&stubHistoryService{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/predictions?dateTo=yesterday", nil)
	w := serve("GET /predictions", handler.List, req, "owner")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryHandler_RequiresIdentity(t *testing.T) {
	handler := handlers.NewPredictionHistoryHandler(&stubHistoryService{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/predictions/recent", nil)
	w := serve("GET /predictions/recent", handler.Recent, req, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Usuario no autenticado", decodeBody(t, w)["message"])
}

func TestHistoryHandler_EmptyListIsArray(t *testing.T) {
	handler := handlers.NewPredictionHistoryHandler(&stubHistoryService{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/predictions/favorites", nil)
	w := serve("GET /predictions/favorites", handler.Favorites, req, "owner")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"predictions":[]`)
}

func TestHistoryHandler_GetMapsErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", apperrors.NewNotFoundError("prediction not found"), http.StatusNotFound, "Predicción no encontrada"},
		{"forbidden", apperrors.NewForbiddenError("prediction belongs to another user"), http.StatusForbidden, "No tienes permiso para acceder a esta predicción"},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "Error interno del servidor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewPredictionHistoryHandler(&stubHistoryService{err: tt.err}, zerolog.Nop())
			req := httptest.NewRequest(http.MethodGet, "/predictions/abc", nil)
			w := serve("GET /predictions/{id}", handler.Get, req, "owner")

			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestHistoryHandler_ToggleFavoriteMessage(t *testing.T) {
	service := &stubHistoryService{record: &entities.PredictionRecord{ID: "abc", IsFavorite: true}}
	handler := handlers.NewPredictionHistoryHandler(service, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/predictions/abc/favorite", nil)
	w := serve("POST /predictions/{id}/favorite", handler.ToggleFavorite, req, "owner")
	assert.Equal(t, "Predicción agregada a favoritos", decodeBody(t, w)["message"])

	service.record.IsFavorite = false
	req = httptest.NewRequest(http.MethodPost, "/predictions/abc/favorite", nil)
	w = serve("POST /predictions/{id}/favorite", handler.ToggleFavorite, req, "owner")
	assert.Equal(t, "Predicción removida de favoritos", decodeBody(t, w)["message"])
}

func TestHistoryHandler_UpdateNotes(t *testing.T) {
	service := &stubHistoryService{record: &entities.PredictionRecord{ID: "abc"}}
	handler := handlers.NewPredictionHistoryHandler(service, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPut, "/predictions/abc/notes", strings.NewReader(`{}`))
	w := serve("PUT /predictions/{id}/notes", handler.UpdateNotes, req, "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "El campo 'notes' es requerido", decodeBody(t, w)["message"])

	req = httptest.NewRequest(http.MethodPut, "/predictions/abc/notes", strings.NewReader(`{"notes":""}`))
	w = serve("PUT /predictions/{id}/notes", handler.UpdateNotes, req, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Notas actualizadas exitosamente", decodeBody(t, w)["message"])
	assert.Equal(t, "", service.notes)
}

func TestHistoryHandler_DeleteAndStatistics(t *testing.T) {
	service := &stubHistoryService{}
	handler := handlers.NewPredictionHistoryHandler(service, zerolog.Nop())

	req := httptest.NewRequest(http.MethodDelete, "/predictions/abc", nil)
	w := serve("DELETE /predictions/{id}", handler.Delete, req, "owner")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Predicción eliminada exitosamente", decodeBody(t, w)["message"])

	req = httptest.NewRequest(http.MethodGet, "/predictions/statistics", nil)
	w = serve("GET /predictions/statistics", handler.Statistics, req, "owner")
	body := decodeBody(t, w)
	stats := body["statistics"].(map[string]interface{})
	assert.Equal(t, float64(3), stats["total"])
}
