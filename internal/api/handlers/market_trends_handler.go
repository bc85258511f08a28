package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

// MarketTrendsService defines the report lookup used by the handler
type MarketTrendsService interface {
	GetReport(ctx context.Context, barrio string) (*entities.MarketReport, error)
}

// MarketTrendsHandler serves published neighborhood reports
type MarketTrendsHandler struct {
	service MarketTrendsService
	logger  zerolog.Logger
}

// NewMarketTrendsHandler creates a new market trends handler
func NewMarketTrendsHandler(service MarketTrendsService, logger zerolog.Logger) *MarketTrendsHandler {
	return &MarketTrendsHandler{
		service: service,
		logger:  logger.With().Str("component", "market_trends_handler").Logger(),
	}
}

// GetTrends handles GET /market-trends/{barrio}
func (h *MarketTrendsHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	barrio := strings.TrimSpace(r.PathValue("barrio"))
	if barrio == "" {
		respondWithError(w, http.StatusBadRequest, "El parámetro 'barrio' es requerido")
		return
	}

	report, err := h.service.GetReport(r.Context(), barrio)
	if err != nil {
		switch {
		case apperrors.IsType(err, apperrors.ErrorTypeNotFound):
			respondWithJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": fmt.Sprintf("No se encontraron tendencias de mercado para el barrio %s", barrio),
				"barrio":  barrio,
			})
		case apperrors.IsType(err, apperrors.ErrorTypeValidation):
			respondWithError(w, http.StatusBadRequest, "El parámetro 'barrio' es requerido")
		default:
			h.logger.Error().Err(err).Str("barrio", barrio).Msg("market trends lookup failed")
			respondWithError(w, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Tendencias de mercado obtenidas exitosamente",
		"barrio":  report.Barrio,
		"data": map[string]interface{}{
			"images":  report.Images,
			"metrics": report.Metrics,
			"period":  report.Period,
		},
	})
}
