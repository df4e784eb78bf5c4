package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/ledger-intake/internal/platform/db"
)

// Store backends selectable through LEDGER_STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":5000"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"60s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"120s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"0s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile   string `envconfig:"LOG_FILE"`

	DBName     string `envconfig:"DB_NAME" default:"ledger"`
	DBUser     string `envconfig:"DB_USER" default:"ledger"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	LedgerTable string `envconfig:"LEDGER_TABLE" default:"ledger_entries"`
	LedgerStore string `envconfig:"LEDGER_STORE" default:"postgres"`

	GoogleCreds string `envconfig:"GOOGLE_CREDS" required:"true"`

	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiModel        string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	ExtractConcurrency int    `envconfig:"EXTRACT_CONCURRENCY" default:"1"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,https://your-deployed-frontend.com"`
}

// LoadConfig reads configuration from environment variables after loading
// an optional .env file from the working directory.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GoogleCreds == "" {
		return errors.New("google service account credentials must be provided")
	}
	if c.GeminiAPIKey == "" {
		return errors.New("gemini api key must be provided")
	}
	switch c.LedgerStore {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown ledger store %q", c.LedgerStore)
	}
	if c.ExtractConcurrency < 1 {
		return errors.New("extract concurrency must be at least 1")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DBParams returns the database connection settings.
func (c *Config) DBParams() db.Params {
	return db.Params{
		Name:     c.DBName,
		User:     c.DBUser,
		Password: c.DBPassword,
		Host:     c.DBHost,
		Port:     c.DBPort,
		SSLMode:  c.DBSSLMode,
	}
}
