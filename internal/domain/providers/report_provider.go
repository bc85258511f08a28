package providers

import (
	"context"
	"time"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
)

// ReportProvider reads the published neighborhood reports for a period.
// Missing reports are not errors: images come back empty and metrics nil.
type ReportProvider interface {
	ReportImages(ctx context.Context, barrio string, period time.Time) (*entities.ReportImages, error)
	NeighborhoodMetrics(ctx context.Context, barrio string, period time.Time) (map[string]any, error)
}
