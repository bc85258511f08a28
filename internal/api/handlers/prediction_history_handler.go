package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/api/middleware"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/repositories"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

const (
	msgInternalError   = "Error interno del servidor"
	msgUnauthenticated = "Usuario no autenticado"
	msgNotFound        = "Predicción no encontrada"
	msgForbidden       = "No tienes permiso para acceder a esta predicción"
)

// PredictionHistoryService defines the history operations used by the handler
type PredictionHistoryService interface {
	List(ctx context.Context, ownerSub string, filter repositories.PredictionFilter) ([]*entities.PredictionRecord, error)
	Recent(ctx context.Context, ownerSub string, limit int) ([]*entities.PredictionRecord, error)
	Favorites(ctx context.Context, ownerSub string) ([]*entities.PredictionRecord, error)
	Statistics(ctx context.Context, ownerSub string) (*repositories.PredictionStatistics, error)
	Get(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error)
	ToggleFavorite(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error)
	UpdateNotes(ctx context.Context, id, ownerSub, notes string) (*entities.PredictionRecord, error)
	Delete(ctx context.Context, id, ownerSub string) error
}

// PredictionHistoryHandler serves a user's saved predictions
type PredictionHistoryHandler struct {
	service PredictionHistoryService
	logger  zerolog.Logger
}

// NewPredictionHistoryHandler creates a new history handler
func NewPredictionHistoryHandler(service PredictionHistoryService, logger zerolog.Logger) *PredictionHistoryHandler {
	return &PredictionHistoryHandler{
		service: service,
		logger:  logger.With().Str("component", "prediction_history_handler").Logger(),
	}
}

// List handles GET /predictions
func (h *PredictionHistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	filter, err := parsePredictionFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, apperrors.MessageOf(err))
		return
	}

	records, err := h.service.List(r.Context(), owner, filter)
	if err != nil {
		h.fail(w, err, "list predictions")
		return
	}
	respondWithRecords(w, "Predicciones obtenidas exitosamente", records)
}

// Recent handles GET /predictions/recent
func (h *PredictionHistoryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.service.Recent(r.Context(), owner, limit)
	if err != nil {
		h.fail(w, err, "recent predictions")
		return
	}
	respondWithRecords(w, "Predicciones recientes obtenidas exitosamente", records)
}

// Favorites handles GET /predictions/favorites
func (h *PredictionHistoryHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	records, err := h.service.Favorites(r.Context(), owner)
	if err != nil {
		h.fail(w, err, "favorite predictions")
		return
	}
	respondWithRecords(w, "Predicciones favoritas obtenidas exitosamente", records)
}

// Statistics handles GET /predictions/statistics
func (h *PredictionHistoryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Statistics(r.Context(), owner)
	if err != nil {
		h.fail(w, err, "prediction statistics")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Estadísticas obtenidas exitosamente",
		"statistics": stats,
	})
}

// Get handles GET /predictions/{id}
func (h *PredictionHistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	record, err := h.service.Get(r.Context(), r.PathValue("id"), owner)
	if err != nil {
		h.fail(w, err, "get prediction")
		return
	}
	respondWithRecord(w, "Predicción obtenida exitosamente", record)
}

// ToggleFavorite handles POST /predictions/{id}/favorite
func (h *PredictionHistoryHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	record, err := h.service.ToggleFavorite(r.Context(), r.PathValue("id"), owner)
	if err != nil {
		h.fail(w, err, "toggle favorite")
		return
	}
	message := "Predicción removida de favoritos"
	if record.IsFavorite {
		message = "Predicción agregada a favoritos"
	}
	respondWithRecord(w, message, record)
}

// UpdateNotes handles PUT /predictions/{id}/notes
func (h *PredictionHistoryHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	var body struct {
		Notes *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Notes == nil {
		respondWithError(w, http.StatusBadRequest, "El campo 'notes' es requerido")
		return
	}

	record, err := h.service.UpdateNotes(r.Context(), r.PathValue("id"), owner, *body.Notes)
	if err != nil {
		h.fail(w, err, "update notes")
		return
	}
	respondWithRecord(w, "Notas actualizadas exitosamente", record)
}

// Delete handles DELETE /predictions/{id}
func (h *PredictionHistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), r.PathValue("id"), owner); err != nil {
		h.fail(w, err, "delete prediction")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Predicción eliminada exitosamente",
	})
}

func (h *PredictionHistoryHandler) fail(w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		respondWithError(w, status, msgNotFound)
	case http.StatusForbidden:
		respondWithError(w, status, msgForbidden)
	case http.StatusBadRequest:
		respondWithError(w, status, apperrors.MessageOf(err))
	default:
		h.logger.Error().Err(err).Str("operation", op).Msg("prediction history request failed")
		respondWithError(w, http.StatusInternalServerError, msgInternalError)
	}
}

func ownerOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil || identity.Sub == "" {
		respondWithError(w, http.StatusUnauthorized, msgUnauthenticated)
		return "", false
	}
	return identity.Sub, true
}

func respondWithRecords(w http.ResponseWriter, message string, records []*entities.PredictionRecord) {
	if records == nil {
		records = []*entities.PredictionRecord{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     message,
		"predictions": records,
		"total":       len(records),
	})
}

func respondWithRecord(w http.ResponseWriter, message string, record *entities.PredictionRecord) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    message,
		"prediction": record,
	})
}

func parsePredictionFilter(r *http.Request) (repositories.PredictionFilter, error) {
	q := r.URL.Query()
	filter := repositories.PredictionFilter{
		Status: entities.PredictionStatus(q.Get("status")),
		Barrio: strings.TrimSpace(q.Get("barrio")),
	}

	var err error
	if filter.Dormitorios, err = optionalInt(q.Get("dormitorios"), "dormitorios"); err != nil {
		return filter, err
	}
	if v := q.Get("isFavorite"); v != "" {
		fav, perr := strconv.ParseBool(v)
		if perr != nil {
			return filter, apperrors.NewValidationError("isFavorite must be true or false")
		}
		filter.IsFavorite = &fav
	}
	if filter.DateFrom, err = optionalTime(q.Get("dateFrom"), "dateFrom"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = optionalTime(q.Get("dateTo"), "dateTo"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = optionalFloat(q.Get("minPrecio"), "minPrecio"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = optionalFloat(q.Get("maxPrecio"), "maxPrecio"); err != nil {
		return filter, err
	}
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			return filter, apperrors.NewValidationError("limit must be an integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			return filter, apperrors.NewValidationError("offset must be an integer")
		}
	}
	return filter, nil
}

func optionalInt(v, name string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperrors.NewValidationError(name + " must be an integer")
	}
	return &n, nil
}

func optionalFloat(v, name string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperrors.NewValidationError(name + " must be a number")
	}
	return &f, nil
}

// optionalTime accepts RFC 3339 timestamps or plain dates
func optionalTime(v, name string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError(name + " must be a date (YYYY-MM-DD)")
}
