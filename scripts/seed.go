package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/observatorio/rentpredict/backend/internal/adapters/database"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/repositories"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/clients/postgres"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/observability"
	"github.com/observatorio/rentpredict/backend/pkg/config"
)

type sample struct {
	barrio   string
	rooms    float64
	surface  float64
	bedrooms float64
	low      int64
	high     int64
	failed   bool
	favorite bool
}

var samples = []sample{
	{barrio: "Palermo", rooms: 2, surface: 45, bedrooms: 1, low: 780000, high: 780000, favorite: true},
	{barrio: "Belgrano", rooms: 3, surface: 70, bedrooms: 2, low: 950000, high: 1120000},
	{barrio: "Caballito", rooms: 2, surface: 40, bedrooms: 1, low: 560000, high: 610000},
	{barrio: "Recoleta", rooms: 4, surface: 110, bedrooms: 3, low: 1650000, high: 1650000, favorite: true},
	{barrio: "Boedo", rooms: 1, surface: 30, failed: true},
	{barrio: "Villa Crespo", rooms: 3, surface: 65, bedrooms: 2, low: 720000, high: 840000},
}

func main() {
	var sub, email string
	var reset bool

	flag.StringVar(&sub, "sub", "local-dev-user", "Cognito subject that owns the seeded history")
	flag.StringVar(&email, "email", "dev@observatorio.local", "Email stored on the seeded records")
	flag.BoolVar(&reset, "reset", os.Getenv("RESET_DB") == "true", "Delete the subject's history before seeding")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := observability.NewLogger(os.Stderr, "seed", "development", cfg.Log.Level)

	pgClient, err := postgres.NewClient(&cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	ctx := context.Background()

	migration, err := os.ReadFile("migrations/001_rent_predictions.sql")
	if err != nil {
		logger.Fatal().Err(err).Msg("run the seeder from the repository root")
	}
	if _, err := pgClient.DB().ExecContext(ctx, string(migration)); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	if reset {
		if _, err := pgClient.DB().ExecContext(ctx, `DELETE FROM rent_predictions WHERE cognito_sub = $1`, sub); err != nil {
			logger.Fatal().Err(err).Msg("failed to reset history")
		}
		logger.Info().Str("sub", sub).Msg("history cleared")
	}

	repo := database.NewPredictionAdapter(pgClient)
	for _, s := range samples {
		if err := seedOne(ctx, repo, sub, email, s); err != nil {
			logger.Fatal().Err(err).Str("barrio", s.barrio).Msg("failed to seed prediction")
		}
	}
	logger.Info().Int("count", len(samples)).Str("sub", sub).Msg("seeding complete")
}

func seedOne(ctx context.Context, repo repositories.PredictionRepository, sub, email string, s sample) error {
	barrio := s.barrio
	record := &entities.PredictionRecord{
		ID:         uuid.NewString(),
		CognitoSub: sub,
		UserEmail:  email,
		Input: entities.PredictionInput{
			Barrio:          &barrio,
			Ambientes:       &s.rooms,
			MetrosCuadrados: &s.surface,
			Dormitorios:     &s.bedrooms,
		},
		Currency: "ARS",
		Status:   entities.PredictionStatusPending,
	}
	if err := repo.Create(ctx, record); err != nil {
		return err
	}

	elapsed := int64(900 + time.Now().UnixNano()%600)
	patch := repositories.PredictionPatch{ExecutionTimeMs: &elapsed}
	if s.failed {
		status := entities.PredictionStatusError
		message := "prediction function error: model not loaded"
		patch.Status, patch.ErrorMessage = &status, &message
	} else {
		status := entities.PredictionStatusSuccess
		currency := "ARS"
		patch.Status, patch.PredictionMin, patch.PredictionMax, patch.Currency = &status, &s.low, &s.high, &currency
	}
	if _, err := repo.Update(ctx, record.ID, patch); err != nil {
		return err
	}

	if s.favorite {
		if _, err := repo.ToggleFavorite(ctx, record.ID, sub); err != nil {
			return err
		}
	}
	return nil
}
