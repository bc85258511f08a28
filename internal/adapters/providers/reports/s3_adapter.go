package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/pkg/retry"
	"github.com/observatorio/rentpredict/backend/pkg/utils"
	"github.com/rs/zerolog"
)

const (
	picturesRoot = "reporting/report_pictures"
	metricsRoot  = "reporting/metrics"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// S3API is the subset of the S3 client used to read reports
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Adapter reads report charts and metrics published to the report bucket
type S3Adapter struct {
	client S3API
	bucket string
	region string
	retry  retry.Config
	logger zerolog.Logger
}

// NewS3Adapter creates a new report adapter
func NewS3Adapter(client S3API, bucket, region string, logger zerolog.Logger) providers.ReportProvider {
	return &S3Adapter{
		client: client,
		bucket: bucket,
		region: region,
		retry:  retry.QuickConfig(),
		logger: logger.With().Str("component", "s3_reports").Logger(),
	}
}

// ReportImages lists the chart images of barrio for period. All nine slots
// are present in the result; charts that were not published stay nil.
func (a *S3Adapter) ReportImages(ctx context.Context, barrio string, period time.Time) (*entities.ReportImages, error) {
	images := &entities.ReportImages{}
	if a.bucket == "" || strings.TrimSpace(barrio) == "" {
		a.logger.Warn().Str("barrio", barrio).Msg("bucket or barrio missing, skipping report images")
		return images, nil
	}

	prefix := fmt.Sprintf("%s/%s/%s/", picturesRoot, utils.PeriodFolder(period), utils.FolderName(barrio))

	var out *s3.ListObjectsV2Output
	err := retry.DoWithLog(ctx, a.retry, "S3", func() error {
		var err error
		out, err = a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(a.bucket),
			Prefix: aws.String(prefix),
		})
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		a.logger.Debug().Err(err).Int("attempt", attempt).Msg("listing report images failed, retrying")
	})
	if err != nil {
		return images, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	for _, object := range out.Contents {
		key := aws.ToString(object.Key)
		ext := strings.ToLower(path.Ext(key))
		if !imageExtensions[ext] {
			continue
		}
		stem := strings.TrimSuffix(path.Base(key), path.Ext(key))
		images.Set(stem, a.publicURL(key))
	}

	a.logger.Debug().Str("prefix", prefix).Int("found", images.Count()).Msg("report images resolved")
	return images, nil
}

// NeighborhoodMetrics reads metrics.json of barrio for period. A missing
// object yields nil without error.
func (a *S3Adapter) NeighborhoodMetrics(ctx context.Context, barrio string, period time.Time) (map[string]any, error) {
	if a.bucket == "" || strings.TrimSpace(barrio) == "" {
		return nil, nil
	}

	key := fmt.Sprintf("%s/%s/%s/metrics.json", metricsRoot, utils.PeriodFolder(period), utils.FolderName(barrio))

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			a.logger.Debug().Str("key", key).Msg("no metrics published")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	defer out.Body.Close()

	var metrics map[string]any
	if err := json.NewDecoder(out.Body).Decode(&metrics); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return metrics, nil
}

func (a *S3Adapter) publicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.region, key)
}
