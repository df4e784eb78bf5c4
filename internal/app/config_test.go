package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_CREDS", `{"type":"service_account"}`)
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.AppAddr)
	assert.Equal(t, 60*time.Second, cfg.AppReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.AppWriteTimeout)
	assert.Zero(t, cfg.AppRequestTimeout)
	assert.Equal(t, "ledger_entries", cfg.LedgerTable)
	assert.Equal(t, StorePostgres, cfg.LedgerStore)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, 1, cfg.ExtractConcurrency)
	assert.Equal(t, []string{"http://localhost:3000", "https://your-deployed-frontend.com"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("LEDGER_STORE", StoreMemory)
	t.Setenv("EXTRACT_CONCURRENCY", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ledger.example.com")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StoreMemory, cfg.LedgerStore)
	assert.Equal(t, 4, cfg.ExtractConcurrency)
	assert.Equal(t, []string{"https://ledger.example.com"}, cfg.CORSAllowedOrigins)

	params := cfg.DBParams()
	assert.Equal(t, "db.internal", params.Host)
	assert.Equal(t, "6543", params.Port)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing creds":  {"GOOGLE_CREDS": ""},
		"missing key":    {"GEMINI_API_KEY": ""},
		"unknown store":  {"LEDGER_STORE": "sqlite"},
		"no concurrency": {"EXTRACT_CONCURRENCY": "0"},
		"bad timeout":    {"APP_READ_TIMEOUT": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestIsProductionNilSafe(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
}
