package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/observatorio/rentpredict/backend/internal/adapters/cache"
	"github.com/observatorio/rentpredict/backend/internal/adapters/database"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/geolocation"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/identity"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/inference"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/places"
	"github.com/observatorio/rentpredict/backend/internal/adapters/providers/reports"
	"github.com/observatorio/rentpredict/backend/internal/api/handlers"
	"github.com/observatorio/rentpredict/backend/internal/api/middleware"
	"github.com/observatorio/rentpredict/backend/internal/api/routes"
	"github.com/observatorio/rentpredict/backend/internal/application/services"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/clients/aws"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/clients/postgres"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/clients/redis"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/observability"
	"github.com/observatorio/rentpredict/backend/pkg/config"
	"github.com/observatorio/rentpredict/backend/pkg/secrets"
	"github.com/observatorio/rentpredict/backend/pkg/utils"
)

const memoryCacheSize = 4096

func main() {
	// A missing .env is fine; the environment wins anyway
	_ = godotenv.Load()

	bootstrap := observability.NewLogger(os.Stderr, "rent-prediction-api", os.Getenv("APP_ENV"), "info")
	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv(), bootstrap); err != nil {
		bootstrap.Fatal().Err(err).Msg("failed to load secrets from vault")
	}

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis is optional: fall back to an in-process cache
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
		cacheProvider, err = cache.NewMemoryAdapter(memoryCacheSize)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create memory cache")
		}
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient, cfg.Redis.KeyPrefix)
	}

	awsClients, err := aws.NewClients(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize AWS clients")
	}

	normalizer := utils.NewNeighborhoodNormalizer()

	// Adapters
	predictionRepo := database.NewPredictionAdapter(pgClient)
	inferenceProvider := inference.NewLambdaAdapter(awsClients.Lambda, cfg.Inference.FunctionName, cfg.Inference.Timeout, logger)
	reportProvider := reports.NewS3Adapter(awsClients.S3, cfg.Reports.BucketName, awsClients.Region, logger)
	placesProvider := places.NewOverpassAdapter(cfg.Overpass.Endpoint, cfg.Overpass.Timeout, logger)

	var geocoder providers.GeocodingProvider
	switch cfg.Geolocation.Provider {
	case "static":
		geocoder = geolocation.NewStaticProvider(normalizer)
	default:
		geocoder = geolocation.NewAWSLocationProvider(awsClients.Location, geolocation.AWSLocationOptions{
			PlaceIndex: cfg.Geolocation.PlaceIndex,
			Timeout:    cfg.Geolocation.Timeout,
			Cache:      cacheProvider,
			CacheTTL:   cfg.Geolocation.CacheTTL,
			Metrics:    metrics,
		}, logger)
	}
	logger.Info().Str("provider", cfg.Geolocation.Provider).Msg("geocoder configured")

	var verifier providers.TokenVerifier
	var userHandler *handlers.UserHandler
	if cfg.Auth.Enabled() {
		verifier, err = identity.NewCognitoVerifier(ctx, &cfg.Auth)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load Cognito signing keys")
		}
		directory := identity.NewCognitoDirectory(awsClients.UserPool(cfg.Auth.Region), &cfg.Auth, logger)
		userHandler = handlers.NewUserHandler(services.NewUserService(directory, logger), logger)
	} else {
		logger.Warn().Msg("COGNITO_USER_POOL_ID not set, account routes are disabled and authenticated routes reject every request")
	}

	// Services
	gateway := services.NewInferenceGateway(inferenceProvider, reportProvider, normalizer, metrics, logger)
	nearby := services.NewNearbyPlacesService(placesProvider, cacheProvider, services.NearbyPlacesOptions{
		RadiusMeters:    cfg.Overpass.RadiusMeters,
		CategoryTimeout: cfg.Overpass.Timeout,
		CacheTTL:        cfg.Overpass.CacheTTL,
	}, metrics, logger)
	predictionService := services.NewPredictionService(gateway, geocoder, nearby, predictionRepo, metrics, logger)
	historyService := services.NewPredictionHistoryService(predictionRepo, logger)
	trendsService := services.NewMarketTrendsService(reportProvider, logger)

	router := routes.NewRouter(
		handlers.NewPredictionHandler(predictionService, logger),
		handlers.NewPredictionHistoryHandler(historyService, logger),
		handlers.NewMarketTrendsHandler(trendsService, logger),
		routes.RouterOptions{
			Users:          userHandler,
			AdminGroup:     cfg.Auth.AdminGroup,
			Auth:           middleware.NewAuthMiddleware(verifier, logger),
			Cache:          middleware.NewCacheMiddleware(cacheProvider, metrics, logger),
			Metrics:        metrics,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger,
		},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// inference alone may take up to its own timeout
		WriteTimeout: cfg.Inference.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
}

