package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration, loaded from environment variables
type Config struct {
	// HTTP Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Backend selection: "memory" or "postgres"
	DataBackend string

	// UndoGraceWindow bounds how long execution record transitions stay
	// undoable
	UndoGraceWindow time.Duration

	// Rate source
	RateSourceURL string
	RateTimeout   time.Duration
	RateCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, applying defaults
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "coinplan"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		UndoGraceWindow: getEnvDuration("UNDO_GRACE_WINDOW", 24*time.Hour),

		RateSourceURL: getEnv("RATE_SOURCE_URL", ""),
		RateTimeout:   getEnvDuration("RATE_TIMEOUT", 10*time.Second),
		RateCacheTTL:  getEnvDuration("RATE_CACHE_TTL", time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: must be a number", c.Port)
	} else if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}

	switch c.DataBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("invalid data backend %q: must be memory or postgres", c.DataBackend)
	}

	if c.UndoGraceWindow <= 0 {
		return fmt.Errorf("undo grace window must be positive, got %s", c.UndoGraceWindow)
	}

	return nil
}

// DBConnString builds the postgres connection string
func (c *Config) DBConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
