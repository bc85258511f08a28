package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/observatorio/rentpredict/backend/internal/api/handlers"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

type stubTrendsService struct {
	report *entities.MarketReport
	err    error
}

func (s *stubTrendsService) GetReport(ctx context.Context, barrio string) (*entities.MarketReport, error) {
	return s.report, s.err
}

func TestMarketTrendsHandler_Found(t *testing.T) {
	images := &entities.ReportImages{}
	images.Set("price_evolution", "https://example.com/p.png")
	handler := handlers.NewMarketTrendsHandler(&stubTrendsService{report: &entities.MarketReport{
		Barrio: "Palermo", Period: "05_2025", Images: images, Metrics: map[string]any{"avg": 1.0},
	}}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/market-trends/Palermo", nil)
	w := serve("GET /market-trends/{barrio}", handler.GetTrends, req, "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Palermo", body["barrio"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "05_2025", data["period"])
	assert.NotNil(t, data["images"])
}

func TestMarketTrendsHandler_NotFound(t *testing.T) {
	handler := handlers.NewMarketTrendsHandler(&stubTrendsService{
		err: apperrors.NewNotFoundError("no report"),
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/market-trends/Boedo", nil)
	w := serve("GET /market-trends/{barrio}", handler.GetTrends, req, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "No se encontraron tendencias de mercado para el barrio Boedo", body["message"])
	assert.Equal(t, "Boedo", body["barrio"])
}
