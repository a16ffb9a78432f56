package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Store StoreConfig
	LLM   LLMConfig
	Batch BatchConfig
}

// StoreConfig holds persistence sink configuration.
type StoreConfig struct {
	// DSN selects the relational sink: a postgres:// URL opens a pgx pool,
	// anything else is treated as a SQLite path. Empty means the caller
	// decides (the CLI defaults to <out>/invoices.db).
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// LLMConfig holds backend adapter configuration. There is no process-wide
// client state: this struct is passed explicitly to the adapter constructor.
type LLMConfig struct {
	Provider    string // "openai" | "anthropic"
	APIKey      string
	Endpoint    string // base URL; Azure resource endpoint when Deployment is set
	Deployment  string // Azure OpenAI deployment id; empty for plain OpenAI
	APIVersion  string // Azure OpenAI api-version query parameter
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// BatchConfig holds batch extraction engine configuration.
type BatchConfig struct {
	Workers    int
	MaxRetries int
	Backoff    time.Duration
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	provider := getEnv("LLM_PROVIDER", "openai")
	apiKey := getEnv("OPENAI_API_KEY", "")
	if provider == "anthropic" {
		apiKey = getEnv("ANTHROPIC_API_KEY", "")
	}

	return &Config{
		Store: StoreConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		LLM: LLMConfig{
			Provider:    provider,
			APIKey:      apiKey,
			Endpoint:    getEnv("OPENAI_ENDPOINT", ""),
			Deployment:  getEnv("OPENAI_DEPLOYMENT", ""),
			APIVersion:  getEnv("OPENAI_API_VERSION", ""),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Batch: BatchConfig{
			Workers:    getEnvAsInt("BATCH_WORKERS", 4),
			MaxRetries: getEnvAsInt("BATCH_MAX_RETRIES", 2),
			Backoff:    getEnvAsDuration("BATCH_RETRY_BACKOFF", 2*time.Second),
		},
	}
}

// Validate checks the loaded configuration for required keys.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY or ANTHROPIC_API_KEY is required", ErrInvalidInput)
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "anthropic" {
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be openai or anthropic", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
