package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
	"github.com/observatorio/rentpredict/backend/pkg/utils"
)

// MarketTrendsService serves the published charts and metrics of a neighborhood
type MarketTrendsService struct {
	reports providers.ReportProvider
	logger  zerolog.Logger
	now     func() time.Time
}

// NewMarketTrendsService creates a new market trends service
func NewMarketTrendsService(reports providers.ReportProvider, logger zerolog.Logger) *MarketTrendsService {
	return &MarketTrendsService{
		reports: reports,
		logger:  logger.With().Str("component", "market_trends").Logger(),
		now:     time.Now,
	}
}

// GetReport returns the current period's report for barrio. It fails with
// NOT_FOUND when neither charts nor metrics exist.
func (s *MarketTrendsService) GetReport(ctx context.Context, barrio string) (*entities.MarketReport, error) {
	barrio = strings.TrimSpace(barrio)
	if barrio == "" {
		return nil, apperrors.NewValidationError("barrio is required")
	}

	period := s.now()
	images, metrics := loadReportAssets(ctx, s.reports, barrio, period, s.logger)
	report := &entities.MarketReport{
		Barrio:  barrio,
		Period:  utils.PeriodFolder(period),
		Images:  images,
		Metrics: metrics,
	}
	if report.Empty() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no market data for %s in %s", barrio, report.Period))
	}
	return report, nil
}

// loadReportAssets fetches charts and metrics concurrently. Failures are
// logged and read as absence: images stay empty and metrics nil.
func loadReportAssets(ctx context.Context, rp providers.ReportProvider, barrio string, period time.Time, logger zerolog.Logger) (*entities.ReportImages, map[string]any) {
	images := &entities.ReportImages{}
	if rp == nil || barrio == "" {
		return images, nil
	}

	var (
		metrics map[string]any
		wg      sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		found, err := rp.ReportImages(ctx, barrio, period)
		if err != nil {
			logger.Warn().Err(err).Str("barrio", barrio).Msg("failed to list report images")
			return
		}
		if found != nil {
			images = found
		}
	}()
	go func() {
		defer wg.Done()
		found, err := rp.NeighborhoodMetrics(ctx, barrio, period)
		if err != nil {
			logger.Warn().Err(err).Str("barrio", barrio).Msg("failed to read neighborhood metrics")
			return
		}
		metrics = found
	}()
	wg.Wait()

	return images, metrics
}
