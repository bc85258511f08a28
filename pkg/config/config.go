package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Inference   InferenceConfig
	Geolocation GeolocationConfig
	Overpass    OverpassConfig
	Reports     ReportsConfig
	Auth        AuthConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// AWSConfig holds shared AWS SDK settings. Static credentials are optional;
// the default credential chain is used when they are empty.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// InferenceConfig holds the prediction function settings
type InferenceConfig struct {
	FunctionName string
	Timeout      time.Duration
}

// GeolocationConfig holds geocoding provider configuration
type GeolocationConfig struct {
	Provider   string
	PlaceIndex string
	Timeout    time.Duration
	CacheTTL   time.Duration
}

// OverpassConfig holds points-of-interest search configuration
type OverpassConfig struct {
	Endpoint     string
	RadiusMeters int
	Timeout      time.Duration
	CacheTTL     time.Duration
}

// ReportsConfig holds the report bucket configuration
type ReportsConfig struct {
	BucketName string
}

// AuthConfig holds Cognito user pool configuration
type AuthConfig struct {
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string
	// AdminGroup is the user pool group allowed to manage other accounts
	AdminGroup string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	region := getEnv("AWS_REGION", "us-east-1")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Env:            getEnv("APP_ENV", "development"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "observatorio"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "rentpredict:"),
		},
		AWS: AWSConfig{
			Region:          region,
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("AWS_ENDPOINT_URL", ""),
		},
		Inference: InferenceConfig{
			FunctionName: getEnv("LAMBDA_PREDICTION_FUNCTION_NAME", "rent-prediction-function"),
			Timeout:      getEnvAsDuration("INFERENCE_TIMEOUT", 30*time.Second),
		},
		Geolocation: GeolocationConfig{
			Provider:   getEnv("GEOLOCATION_PROVIDER", "aws"),
			PlaceIndex: getEnv("AWS_LOCATION_PLACE_INDEX", "observatorio-places"),
			Timeout:    getEnvAsDuration("GEOCODE_TIMEOUT", 8*time.Second),
			CacheTTL:   getEnvAsDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour),
		},
		Overpass: OverpassConfig{
			Endpoint:     getEnv("OVERPASS_ENDPOINT", "https://overpass-api.de/api/interpreter"),
			RadiusMeters: getEnvAsInt("OVERPASS_RADIUS_METERS", 500),
			Timeout:      getEnvAsDuration("OVERPASS_TIMEOUT", 10*time.Second),
			CacheTTL:     getEnvAsDuration("NEARBY_CACHE_TTL", 24*time.Hour),
		},
		Reports: ReportsConfig{
			BucketName: getEnv("BUCKET_NAME", ""),
		},
		Auth: AuthConfig{
			Region:       getEnv("COGNITO_REGION", region),
			UserPoolID:   getEnv("COGNITO_USER_POOL_ID", ""),
			ClientID:     getEnv("COGNITO_CLIENT_ID", ""),
			ClientSecret: getEnv("COGNITO_CLIENT_SECRET", ""),
			AdminGroup:   getEnv("COGNITO_ADMIN_GROUP", "admin"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "rent-prediction-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Overpass.RadiusMeters <= 0 {
		return nil, fmt.Errorf("OVERPASS_RADIUS_METERS must be positive, got %d", cfg.Overpass.RadiusMeters)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IssuerURL returns the token issuer for the user pool
func (c *AuthConfig) IssuerURL() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// JWKSURL returns the public key set location for the user pool
func (c *AuthConfig) JWKSURL() string {
	return c.IssuerURL() + "/.well-known/jwks.json"
}

// Enabled reports whether a user pool is configured
func (c *AuthConfig) Enabled() bool {
	return strings.TrimSpace(c.UserPoolID) != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
