package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/pkg/retry"
)

// VaultConfig points at a KV secret whose keys are environment variable
// names (DB_PASSWORD, AWS_SECRET_ACCESS_KEY, COGNITO_CLIENT_ID, ...).
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	Overwrite bool
}

// VaultResult reports what ApplyVaultSecrets did
type VaultResult struct {
	Path    string
	Loaded  int
	Skipped int
}

// LoadVaultConfigFromEnv reads VAULT_* variables. It runs before config.Load
// so the secrets it exports are visible there.
func LoadVaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     envOr("VAULT_MOUNT", "secret"),
		Path:      envOr("VAULT_PATH", "rentpredict/api"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		cfg.KVVersion = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil && v > 0 {
		cfg.Timeout = time.Duration(v) * time.Millisecond
	}
	return cfg
}

// ApplyVaultSecrets exports every key of the configured secret into the
// process environment. Variables already set win unless Overwrite is on.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig, logger zerolog.Logger) (VaultResult, error) {
	result := VaultResult{Path: cfg.Path}
	if !cfg.Enabled {
		return result, nil
	}
	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return result, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	var data map[string]any
	err := retry.DoWithLog(ctx, retry.QuickConfig(), "Vault", func() error {
		var ferr error
		data, ferr = fetchSecret(ctx, cfg)
		return ferr
	}, func(attempt int, err error, next time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("vault read failed")
	})
	if err != nil {
		return result, err
	}

	for key, value := range data {
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped++
			continue
		}
		if err := os.Setenv(key, envValue(value)); err != nil {
			return result, fmt.Errorf("export %s: %w", key, err)
		}
		result.Loaded++
	}

	logger.Info().Str("path", cfg.Path).Int("loaded", result.Loaded).Int("skipped", result.Skipped).
		Msg("vault secrets applied")
	return result, nil
}

// kvResponse covers both engine versions: v1 keeps the secret in data, v2
// nests it one level deeper.
type kvResponse struct {
	Data struct {
		Data map[string]any `json:"data"`
	} `json:"data"`
}

func fetchSecret(ctx context.Context, cfg VaultConfig) (map[string]any, error) {
	url, err := secretURL(cfg)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("X-Vault-Token", cfg.Token)
	if cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", cfg.Namespace)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("vault returned %s", resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// auth and missing-path errors will not heal on retry
		return nil, retry.Permanent(fmt.Errorf("vault returned %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	if cfg.KVVersion == 1 {
		var v1 struct {
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(body, &v1); err != nil || v1.Data == nil {
			return nil, retry.Permanent(errors.New("vault response missing data for KV v1"))
		}
		return v1.Data, nil
	}

	var v2 kvResponse
	if err := json.Unmarshal(body, &v2); err != nil || v2.Data.Data == nil {
		return nil, retry.Permanent(errors.New("vault response missing data for KV v2"))
	}
	return v2.Data.Data, nil
}

func secretURL(cfg VaultConfig) (string, error) {
	addr := strings.TrimRight(cfg.Addr, "/")
	mount := strings.Trim(cfg.Mount, "/")
	path := strings.Trim(cfg.Path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault address, mount and path must be set")
	}
	if cfg.KVVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

func envValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
