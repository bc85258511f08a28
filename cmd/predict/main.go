package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/observatorio/rentpredict/backend/internal/adapters/cache"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/geolocation"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/inference"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/places"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/reports"
	"github.com/observatorio/rentpredict/backend/internal/application/services"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/clients/aws"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/observability"
	"github.com/observatorio/rentpredict/backend/pkg/config"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
	"github.com/observatorio/rentpredict/backend/pkg/secrets"
	"github.com/observatorio/rentpredict/backend/pkg/utils"
)

func main() {
	var requestFile string
	var geocoderName string

	flag.StringVar(&requestFile, "f", "", "JSON request file (\"-\" reads stdin)")
	flag.StringVar(&geocoderName, "geocoder", "", "Override GEOLOCATION_PROVIDER (aws|static)")
	flag.Parse()

	if requestFile == "" {
		fmt.Fprintln(os.Stderr, "usage: predict -f request.json")
		os.Exit(2)
	}

	_ = godotenv.Load()

	bootstrap := observability.NewLogger(os.Stderr, "rent-predict-cli", os.Getenv("APP_ENV"), "info")
	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv(), bootstrap); err != nil {
		bootstrap.Fatal().Err(err).Msg("failed to load secrets from vault")
	}

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal().Err(err).Msg("failed to load configuration")
	}
	if geocoderName != "" {
		cfg.Geolocation.Provider = geocoderName
	}

	logger := observability.NewLogger(os.Stderr, "rent-predict-cli", "development", cfg.Log.Level)

	body, err := readRequest(requestFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", requestFile).Msg("failed to read request")
	}
	req, err := services.ParsePredictionRequest(body)
	if err != nil {
		logger.Fatal().Str("reason", apperrors.MessageOf(err)).Msg("invalid request")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	awsClients, err := aws.NewClients(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize AWS clients")
	}
	memory, err := cache.NewMemoryAdapter(256)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create memory cache")
	}

	normalizer := utils.NewNeighborhoodNormalizer()

	var geocoder providers.GeocodingProvider
	if cfg.Geolocation.Provider == "static" {
		geocoder = geolocation.NewStaticProvider(normalizer)
	} else {
		geocoder = geolocation.NewAWSLocationProvider(awsClients.Location, geolocation.AWSLocationOptions{
			PlaceIndex: cfg.Geolocation.PlaceIndex,
			Timeout:    cfg.Geolocation.Timeout,
		}, logger)
	}

	gateway := services.NewInferenceGateway(
		inference.NewLambdaAdapter(awsClients.Lambda, cfg.Inference.FunctionName, cfg.Inference.Timeout, logger),
		reports.NewS3Adapter(awsClients.S3, cfg.Reports.BucketName, awsClients.Region, logger),
		normalizer, nil, logger,
	)
	nearby := services.NewNearbyPlacesService(
		places.NewOverpassAdapter(cfg.Overpass.Endpoint, cfg.Overpass.Timeout, logger),
		memory,
		services.NearbyPlacesOptions{RadiusMeters: cfg.Overpass.RadiusMeters, CategoryTimeout: cfg.Overpass.Timeout},
		nil, logger,
	)
	svc := services.NewPredictionService(gateway, geocoder, nearby, nil, nil, logger)

	resp, err := svc.Predict(ctx, req, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("prediction failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		logger.Fatal().Err(err).Msg("failed to write response")
	}
}

func readRequest(path string) (map[string]any, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return body, nil
}
