package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTestTimeout = 2 * time.Second

func TestApplyVaultSecrets_KV2(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/rentpredict/api", r.URL.Path)
		assert.Equal(t, "s.token", r.Header.Get("X-Vault-Token"))
		_, _ = w.Write([]byte(`{"data":{"data":{"RP_TEST_DB_PASSWORD":"hunter2","RP_TEST_REDIS_DB":3,"RP_TEST_KEEP":"vault"}}}`))
	}))
	defer server.Close()

	t.Setenv("RP_TEST_DB_PASSWORD", "")
	t.Setenv("RP_TEST_REDIS_DB", "")
	t.Setenv("RP_TEST_KEEP", "local")

	result, err := ApplyVaultSecrets(context.Background(), VaultConfig{
		Enabled:   true,
		Addr:      server.URL + "/",
		Token:     "s.token",
		Mount:     "secret",
		Path:      "/rentpredict/api",
		KVVersion: 2,
		Timeout:   defaultTestTimeout,
	}, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Loaded)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "hunter2", os.Getenv("RP_TEST_DB_PASSWORD"))
	assert.Equal(t, "3", os.Getenv("RP_TEST_REDIS_DB"))
	assert.Equal(t, "local", os.Getenv("RP_TEST_KEEP"))
}

func TestApplyVaultSecrets_ForbiddenIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"errors":["permission denied"]}`, http.StatusForbidden)
	}))
	defer server.Close()

	_, err := ApplyVaultSecrets(context.Background(), VaultConfig{
		Enabled: true, Addr: server.URL, Token: "bad", Mount: "secret", Path: "x", KVVersion: 2, Timeout: defaultTestTimeout,
	}, zerolog.Nop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, 1, calls)
}

func TestApplyVaultSecrets_Disabled(t *testing.T) {
	result, err := ApplyVaultSecrets(context.Background(), VaultConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, result.Loaded)

	_, err = ApplyVaultSecrets(context.Background(), VaultConfig{Enabled: true}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSecretURL(t *testing.T) {
	url, err := secretURL(VaultConfig{Addr: "http://vault:8200", Mount: "kv", Path: "app", KVVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, "http://vault:8200/v1/kv/app", url)

	_, err = secretURL(VaultConfig{Addr: "http://vault:8200", Mount: "", Path: "app"})
	assert.Error(t, err)
}
