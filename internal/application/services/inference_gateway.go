package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/observability"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
	"github.com/observatorio/rentpredict/backend/pkg/utils"
)

// InferenceGateway turns a PredictionRequest into one or two calls to the
// prediction function and attaches the neighborhood report assets.
type InferenceGateway struct {
	inference  providers.InferenceProvider
	reports    providers.ReportProvider
	normalizer *utils.NeighborhoodNormalizer
	metrics    *observability.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewInferenceGateway creates a new inference gateway. reports may be nil.
func NewInferenceGateway(
	inference providers.InferenceProvider,
	reports providers.ReportProvider,
	normalizer *utils.NeighborhoodNormalizer,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *InferenceGateway {
	if normalizer == nil {
		normalizer = utils.NewNeighborhoodNormalizer()
	}
	return &InferenceGateway{
		inference:  inference,
		reports:    reports,
		normalizer: normalizer,
		metrics:    metrics,
		logger:     logger.With().Str("component", "inference_gateway").Logger(),
		now:        time.Now,
	}
}

// Predict runs the prediction function once for a single surface or twice,
// concurrently, for a surface range. Either call failing fails the range.
func (g *InferenceGateway) Predict(ctx context.Context, req *entities.PredictionRequest) (*entities.InferenceResult, error) {
	ctx, span := observability.StartSpan(ctx, "InferenceGateway.Predict")
	defer span.End()

	payload := g.buildPayload(req)
	result := &entities.InferenceResult{InputData: req.Input()}

	if req.IsRange() {
		g.logger.Debug().
			Float64("surface_min", *req.SurfaceMin).
			Float64("surface_max", *req.SurfaceMax).
			Msg("range request, invoking prediction function twice")

		var lower, upper int64
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			var err error
			lower, err = g.invoke(egCtx, payload.WithTotalArea(req.SurfaceMin))
			return err
		})
		eg.Go(func() error {
			var err error
			upper, err = g.invoke(egCtx, payload.WithTotalArea(req.SurfaceMax))
			return err
		})
		if err := eg.Wait(); err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		result.PredictionMin = &lower
		result.PredictionMax = &upper
	} else {
		value, err := g.invoke(ctx, payload.WithTotalArea(req.SingleSurface()))
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		result.Prediction = &value
	}

	result.Images, result.Metrics = loadReportAssets(ctx, g.reports, req.Neighborhood, g.now(), g.logger)
	return result, nil
}

func (g *InferenceGateway) buildPayload(req *entities.PredictionRequest) providers.InferencePayload {
	neighborhood := g.normalizer.Normalize(req.Neighborhood)
	if neighborhood == "" {
		neighborhood = req.Neighborhood
	}
	return providers.InferencePayload{
		TotalArea:    req.SingleSurface(),
		Rooms:        req.Rooms,
		Bedrooms:     req.Bedrooms,
		Antiquity:    req.Age,
		Neighborhood: neighborhood,
		Bathrooms:    req.Bathrooms,
		Garages:      req.Garages,
	}
}

func (g *InferenceGateway) invoke(ctx context.Context, payload providers.InferencePayload) (int64, error) {
	raw, err := g.inference.Invoke(ctx, payload)
	if err != nil {
		observability.RecordInferenceCall(ctx, g.metrics, string(apperrors.TypeOf(err)))
		return 0, err
	}

	prediction, err := unwrapInvocation(raw)
	if err != nil {
		observability.RecordInferenceCall(ctx, g.metrics, "function_error")
		g.logger.Error().Err(err).Msg("prediction function returned an error document")
		return 0, err
	}
	observability.RecordInferenceCall(ctx, g.metrics, "ok")

	value, ok := FormatPredictionValue(prediction)
	if !ok {
		g.logger.Warn().Interface("prediction", prediction).Msg("could not parse prediction value, using 0")
	}
	return value, nil
}

// invocationDocument covers both a direct result and a gateway-style envelope
type invocationDocument struct {
	ErrorMessage string          `json:"errorMessage"`
	ErrorType    string          `json:"errorType"`
	StatusCode   int             `json:"statusCode"`
	Body         json.RawMessage `json:"body"`
	Prediction   any             `json:"prediction"`
}

// unwrapInvocation extracts the raw prediction value from the function's
// response document.
func unwrapInvocation(raw []byte) (any, error) {
	var doc invocationDocument
	if err := decodeNumbers(raw, &doc); err != nil {
		return nil, apperrors.NewExternalError("invalid response from prediction function", err)
	}

	if doc.ErrorMessage != "" || doc.ErrorType != "" {
		msg := doc.ErrorMessage
		if msg == "" {
			msg = doc.ErrorType
		}
		return nil, apperrors.NewExternalError(fmt.Sprintf("prediction function error: %s", msg), nil)
	}

	if doc.StatusCode == 0 {
		return doc.Prediction, nil
	}
	if doc.StatusCode != 200 {
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("prediction function returned status %d: %s", doc.StatusCode, bodyText(doc.Body)), nil)
	}

	body := []byte(doc.Body)
	var quoted string
	if json.Unmarshal(body, &quoted) == nil {
		body = []byte(quoted)
	}
	var inner invocationDocument
	if err := decodeNumbers(body, &inner); err != nil {
		return nil, apperrors.NewExternalError("invalid response body from prediction function", err)
	}
	return inner.Prediction, nil
}

func decodeNumbers(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

func bodyText(body json.RawMessage) string {
	var s string
	if json.Unmarshal(body, &s) == nil {
		return s
	}
	return string(body)
}

// FormatPredictionValue reduces the function's prediction (a number, a
// numeric string such as "[1006320.93]", or arrays of either) to an integer
// rounded up. It reports false and returns 0 when nothing numeric is found.
func FormatPredictionValue(value any) (int64, bool) {
	for {
		list, ok := value.([]any)
		if !ok || len(list) == 0 {
			break
		}
		value = list[0]
	}

	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.NewReplacer("[", "", "]", "", `"`, "").Replace(v)
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[:i]
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	return int64(math.Ceil(f)), true
}
