package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all service configuration
type Config struct {
	ServerAddress    string
	StorageDriver    string
	PostgresConn     string
	SupplierSeedFile string
	OllamaHost       string
	OllamaModel      string
	ExplainTimeout   time.Duration
	AdminActorIDs    []string
	LogLevel         string
	Environment      string
	MetricsPrefix    string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress:    getEnv("SERVER_ADDRESS", "0.0.0.0:8080"),
		StorageDriver:    getEnv("STORAGE_DRIVER", DriverPostgres),
		PostgresConn:     os.Getenv("POSTGRES_CONN"),
		SupplierSeedFile: os.Getenv("SUPPLIER_SEED_FILE"),
		OllamaHost:       getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llama3.2:latest"),
		ExplainTimeout:   getEnvAsDuration("EXPLAIN_TIMEOUT", 4*time.Second),
		AdminActorIDs:    getEnvAsList("ADMIN_ACTOR_IDS"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Environment:      getEnv("APP_ENV", "development"),
		MetricsPrefix:    getEnv("METRICS_PREFIX", "agrotrade"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.PostgresConn == "" {
			return errors.New("POSTGRES_CONN env variable is not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.ExplainTimeout <= 0 {
		return errors.New("EXPLAIN_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// допускаем число секунд
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
