package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/repositories"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

const predictionsTable = "rent_predictions"

var predictionColumns = []any{
	"id", "cognito_sub", "user_email",
	"barrio", "ambientes", "metros_cuadrados", "metros_cuadrados_min", "metros_cuadrados_max",
	"dormitorios", "banos", "garajes", "antiguedad", "calle",
	"precio_cota_inferior", "precio_cota_superior", "moneda",
	"images", "metrics", "nearby_places",
	"status", "error_message", "execution_time_ms",
	"user_notes", "is_favorite", "created_at", "updated_at",
}

// predictionRow mirrors one rent_predictions row
type predictionRow struct {
	ID                 string          `db:"id"`
	CognitoSub         string          `db:"cognito_sub"`
	UserEmail          sql.NullString  `db:"user_email"`
	Barrio             sql.NullString  `db:"barrio"`
	Ambientes          sql.NullFloat64 `db:"ambientes"`
	MetrosCuadrados    sql.NullFloat64 `db:"metros_cuadrados"`
	MetrosCuadradosMin sql.NullFloat64 `db:"metros_cuadrados_min"`
	MetrosCuadradosMax sql.NullFloat64 `db:"metros_cuadrados_max"`
	Dormitorios        sql.NullFloat64 `db:"dormitorios"`
	Banos              sql.NullFloat64 `db:"banos"`
	Garajes            sql.NullFloat64 `db:"garajes"`
	Antiguedad         sql.NullFloat64 `db:"antiguedad"`
	Calle              sql.NullString  `db:"calle"`
	PrecioCotaInferior sql.NullFloat64 `db:"precio_cota_inferior"`
	PrecioCotaSuperior sql.NullFloat64 `db:"precio_cota_superior"`
	Moneda             string          `db:"moneda"`
	Images             []byte          `db:"images"`
	Metrics            []byte          `db:"metrics"`
	NearbyPlaces       []byte          `db:"nearby_places"`
	Status             string          `db:"status"`
	ErrorMessage       sql.NullString  `db:"error_message"`
	ExecutionTimeMs    sql.NullInt64   `db:"execution_time_ms"`
	UserNotes          sql.NullString  `db:"user_notes"`
	IsFavorite         bool            `db:"is_favorite"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

// PredictionAdapter implements the PredictionRepository interface
type PredictionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPredictionAdapter creates a new prediction adapter
func NewPredictionAdapter(client *postgres.Client) repositories.PredictionRepository {
	return &PredictionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a new record
func (a *PredictionAdapter) Create(ctx context.Context, record *entities.PredictionRecord) error {
	images, err := jsonColumn(record.Images)
	if err != nil {
		return apperrors.NewInternalError("failed to encode images", err)
	}
	metrics, err := jsonColumn(record.Metrics)
	if err != nil {
		return apperrors.NewInternalError("failed to encode metrics", err)
	}
	nearby, err := jsonColumn(record.NearbyPlaces)
	if err != nil {
		return apperrors.NewInternalError("failed to encode nearby places", err)
	}

	in := record.Input
	row := goqu.Record{
		"id":                   record.ID,
		"cognito_sub":          record.CognitoSub,
		"user_email":           nullString(record.UserEmail),
		"barrio":               in.Barrio,
		"ambientes":            in.Ambientes,
		"metros_cuadrados":     in.MetrosCuadrados,
		"metros_cuadrados_min": in.MetrosCuadradosMin,
		"metros_cuadrados_max": in.MetrosCuadradosMax,
		"dormitorios":          in.Dormitorios,
		"banos":                in.Banos,
		"garajes":              in.Garajes,
		"antiguedad":           in.Antiguedad,
		"calle":                in.Calle,
		"precio_cota_inferior": record.PredictionMin,
		"precio_cota_superior": record.PredictionMax,
		"moneda":               record.Currency,
		"images":               images,
		"metrics":              metrics,
		"nearby_places":        nearby,
		"status":               record.Status,
		"error_message":        record.ErrorMessage,
		"execution_time_ms":    record.ExecutionTimeMs,
		"user_notes":           record.UserNotes,
		"is_favorite":          record.IsFavorite,
		"created_at":           record.CreatedAt,
		"updated_at":           record.UpdatedAt,
	}

	query, args, err := a.db.Insert(predictionsTable).Prepared(true).Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create prediction", err)
	}
	return nil
}

// Update applies the non-nil patch fields and returns the stored record
func (a *PredictionAdapter) Update(ctx context.Context, id string, patch repositories.PredictionPatch) (*entities.PredictionRecord, error) {
	set := goqu.Record{"updated_at": time.Now().UTC()}

	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.PredictionMin != nil {
		set["precio_cota_inferior"] = *patch.PredictionMin
	}
	if patch.PredictionMax != nil {
		set["precio_cota_superior"] = *patch.PredictionMax
	}
	if patch.Currency != nil {
		set["moneda"] = *patch.Currency
	}
	if patch.ErrorMessage != nil {
		set["error_message"] = *patch.ErrorMessage
	}
	if patch.ExecutionTimeMs != nil {
		set["execution_time_ms"] = *patch.ExecutionTimeMs
	}
	if patch.UserNotes != nil {
		set["user_notes"] = *patch.UserNotes
	}
	if patch.IsFavorite != nil {
		set["is_favorite"] = *patch.IsFavorite
	}
	for column, value := range map[string]any{
		"images":        patch.Images,
		"metrics":       patch.Metrics,
		"nearby_places": patch.NearbyPlaces,
	} {
		if isNilValue(value) {
			continue
		}
		encoded, err := jsonColumn(value)
		if err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("failed to encode %s", column), err)
		}
		set[column] = encoded
	}

	query, args, err := a.db.Update(predictionsTable).Prepared(true).
		Set(set).
		Where(goqu.Ex{"id": id}).
		Returning(predictionColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	return a.getOne(ctx, id, query, args)
}

// GetByID retrieves a record by ID
func (a *PredictionAdapter) GetByID(ctx context.Context, id string) (*entities.PredictionRecord, error) {
	query, args, err := a.db.From(predictionsTable).Prepared(true).
		Select(predictionColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.getOne(ctx, id, query, args)
}

// List retrieves records matching the filter, newest first
func (a *PredictionAdapter) List(ctx context.Context, filter repositories.PredictionFilter) ([]*entities.PredictionRecord, error) {
	ds := a.db.From(predictionsTable).Prepared(true).Select(predictionColumns...)

	if filter.CognitoSub != "" {
		ds = ds.Where(goqu.Ex{"cognito_sub": filter.CognitoSub})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.Barrio != "" {
		ds = ds.Where(goqu.Ex{"barrio": filter.Barrio})
	}
	if filter.Dormitorios != nil {
		ds = ds.Where(goqu.Ex{"dormitorios": *filter.Dormitorios})
	}
	if filter.IsFavorite != nil {
		ds = ds.Where(goqu.Ex{"is_favorite": *filter.IsFavorite})
	}
	if filter.DateFrom != nil {
		ds = ds.Where(goqu.C("created_at").Gte(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		ds = ds.Where(goqu.C("created_at").Lte(*filter.DateTo))
	}
	if filter.MinPrice != nil {
		ds = ds.Where(goqu.C("precio_cota_inferior").Gte(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		ds = ds.Where(goqu.C("precio_cota_superior").Lte(*filter.MaxPrice))
	}

	ds = ds.Order(goqu.I("created_at").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	var rows []predictionRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list predictions", err)
	}

	records := make([]*entities.PredictionRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toEntity()
		if err != nil {
			return nil, apperrors.NewInternalError("failed to decode prediction", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// ToggleFavorite flips is_favorite in place for a record owned by ownerSub
func (a *PredictionAdapter) ToggleFavorite(ctx context.Context, id, ownerSub string) (*entities.PredictionRecord, error) {
	query, args, err := a.db.Update(predictionsTable).Prepared(true).
		Set(goqu.Record{
			"is_favorite": goqu.L("NOT is_favorite"),
			"updated_at":  time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id, "cognito_sub": ownerSub}).
		Returning(predictionColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build favorite query", err)
	}

	return a.getOne(ctx, id, query, args)
}

// Delete removes a record owned by ownerSub
func (a *PredictionAdapter) Delete(ctx context.Context, id, ownerSub string) (bool, error) {
	query, args, err := a.db.Delete(predictionsTable).Prepared(true).
		Where(goqu.Ex{"id": id, "cognito_sub": ownerSub}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to delete prediction", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// Statistics aggregates the records of one owner in a single query
func (a *PredictionAdapter) Statistics(ctx context.Context, ownerSub string) (*repositories.PredictionStatistics, error) {
	success := string(entities.PredictionStatusSuccess)
	failed := string(entities.PredictionStatusError)

	query, args, err := a.db.From(predictionsTable).Prepared(true).
		Select(
			goqu.COUNT(goqu.Star()).As("total"),
			goqu.COALESCE(goqu.SUM(goqu.L("CASE WHEN status = ? THEN 1 ELSE 0 END", success)), 0).As("successful"),
			goqu.COALESCE(goqu.SUM(goqu.L("CASE WHEN status = ? THEN 1 ELSE 0 END", failed)), 0).As("failed"),
			goqu.COALESCE(goqu.SUM(goqu.L("CASE WHEN is_favorite THEN 1 ELSE 0 END")), 0).As("favorites"),
			goqu.COALESCE(goqu.AVG(goqu.L(
				"CASE WHEN status = ? AND precio_cota_inferior IS NOT NULL AND precio_cota_superior IS NOT NULL "+
					"THEN (precio_cota_inferior + precio_cota_superior) / 2.0 END", success)), 0).As("average_price"),
		).
		Where(goqu.Ex{"cognito_sub": ownerSub}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build statistics query", err)
	}

	var row struct {
		Total        int     `db:"total"`
		Successful   int     `db:"successful"`
		Failed       int     `db:"failed"`
		Favorites    int     `db:"favorites"`
		AveragePrice float64 `db:"average_price"`
	}
	if err := a.client.DBX().GetContext(ctx, &row, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to compute statistics", err)
	}

	return &repositories.PredictionStatistics{
		Total:        row.Total,
		Successful:   row.Successful,
		Failed:       row.Failed,
		Favorites:    row.Favorites,
		AveragePrice: math.Round(row.AveragePrice*100) / 100,
	}, nil
}

func (a *PredictionAdapter) getOne(ctx context.Context, id, query string, args []any) (*entities.PredictionRecord, error) {
	var row predictionRow
	err := a.client.DBX().GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("prediction with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get prediction", err)
	}

	record, err := row.toEntity()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to decode prediction", err)
	}
	return record, nil
}

func (r *predictionRow) toEntity() (*entities.PredictionRecord, error) {
	record := &entities.PredictionRecord{
		ID:         r.ID,
		CognitoSub: r.CognitoSub,
		UserEmail:  r.UserEmail.String,
		Input: entities.PredictionInput{
			Barrio:             stringPtr(r.Barrio),
			Ambientes:          floatPtr(r.Ambientes),
			MetrosCuadrados:    floatPtr(r.MetrosCuadrados),
			MetrosCuadradosMin: floatPtr(r.MetrosCuadradosMin),
			MetrosCuadradosMax: floatPtr(r.MetrosCuadradosMax),
			Dormitorios:        floatPtr(r.Dormitorios),
			Banos:              floatPtr(r.Banos),
			Garajes:            floatPtr(r.Garajes),
			Antiguedad:         floatPtr(r.Antiguedad),
			Calle:              stringPtr(r.Calle),
		},
		PredictionMin: pricePtr(r.PrecioCotaInferior),
		PredictionMax: pricePtr(r.PrecioCotaSuperior),
		Currency:      r.Moneda,
		Status:        entities.PredictionStatus(r.Status),
		ErrorMessage:  stringPtr(r.ErrorMessage),
		UserNotes:     stringPtr(r.UserNotes),
		IsFavorite:    r.IsFavorite,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ExecutionTimeMs.Valid {
		ms := r.ExecutionTimeMs.Int64
		record.ExecutionTimeMs = &ms
	}

	if len(r.Images) > 0 {
		if err := json.Unmarshal(r.Images, &record.Images); err != nil {
			return nil, err
		}
	}
	if len(r.Metrics) > 0 {
		if err := json.Unmarshal(r.Metrics, &record.Metrics); err != nil {
			return nil, err
		}
	}
	if len(r.NearbyPlaces) > 0 {
		if err := json.Unmarshal(r.NearbyPlaces, &record.NearbyPlaces); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// jsonColumn encodes v for a JSONB column, mapping nil values to SQL NULL
func jsonColumn(v any) (any, error) {
	if isNilValue(v) {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func isNilValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *entities.ReportImages:
		return t == nil
	case *entities.NearbyPlacesResult:
		return t == nil
	case map[string]any:
		return t == nil
	}
	return false
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func pricePtr(v sql.NullFloat64) *int64 {
	if !v.Valid {
		return nil
	}
	p := int64(math.Round(v.Float64))
	return &p
}
