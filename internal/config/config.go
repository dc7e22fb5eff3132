// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Engine      EngineConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

// EngineConfig carries the catalog engine tunables: how aggressively the
// ledger compresses repeat readings, when the classifier abstains, how close
// two titles must be before the dedup fuzzy pass groups them, and below what
// history length a component counts as under-tracked.
type EngineConfig struct {
	LedgerDedupWindowHours int
	ClassifierFloor        float64
	DedupNameSimilarity    float64
	UnderTrackedThreshold  int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "part_catalog"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		Engine: EngineConfig{
			LedgerDedupWindowHours: getEnvAsInt("LEDGER_DEDUP_WINDOW_HOURS", 24),
			ClassifierFloor:        getEnvAsFloat("CLASSIFIER_CONFIDENCE_FLOOR", 0.6),
			DedupNameSimilarity:    getEnvAsFloat("DEDUP_NAME_SIMILARITY", 0.93),
			UnderTrackedThreshold:  getEnvAsInt("UNDER_TRACKED_THRESHOLD", 1),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Engine.ClassifierFloor < 0 || c.Engine.ClassifierFloor > 1 {
		return fmt.Errorf("classifier confidence floor must be within [0,1]")
	}

	if c.Engine.DedupNameSimilarity < 0 || c.Engine.DedupNameSimilarity > 1 {
		return fmt.Errorf("dedup name similarity must be within [0,1]")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
