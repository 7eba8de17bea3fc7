// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Port string

	// Database
	DatabaseType string // "sqlite" or "postgres"
	DBPath       string // SQLite database path
	DatabaseURL  string // PostgreSQL connection string
	DBMaxConns   int    // PostgreSQL pool size

	// Upload limits
	MaxFileSize      int64 // Maximum declared upload size in bytes
	MaxChunkIndex    int   // Highest acceptable 0-based chunk index
	DefaultChunkSize int64 // Chunk size recommended to clients
	AllowedRoles     []string

	// Object storage backend
	S3Bucket          string
	S3Region          string
	S3Endpoint        string // Optional: S3-compatible endpoint override
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PathStyle       bool // Required by most S3-compatible services

	// Sweep of idle sessions
	SweepIdleHours int
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseType:     strings.ToLower(getEnv("DATABASE_TYPE", "sqlite")),
		DBPath:           getEnv("DB_PATH", "./chunkvault.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 25),
		MaxFileSize:      getEnvInt64("MAX_FILE_SIZE", 10737418240), // 10GB
		MaxChunkIndex:    getEnvInt("MAX_CHUNK_INDEX", 10000),
		DefaultChunkSize: getEnvInt64("DEFAULT_CHUNK_SIZE", 157286400), // 150MB
		AllowedRoles:     getEnvList("ALLOWED_ROLES", "creator,member,subscriber"),

		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PathStyle:       getEnvBool("S3_PATH_STYLE", false),

		SweepIdleHours: getEnvInt("SWEEP_IDLE_HOURS", 24),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate ensures configuration values are sensible
func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	switch c.DatabaseType {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty when DATABASE_TYPE is sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_TYPE is postgres")
		}
	default:
		return fmt.Errorf("DATABASE_TYPE must be \"sqlite\" or \"postgres\", got %q", c.DatabaseType)
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize)
	}

	if c.MaxChunkIndex <= 0 {
		return fmt.Errorf("MAX_CHUNK_INDEX must be positive, got %d", c.MaxChunkIndex)
	}

	if c.DefaultChunkSize <= 0 {
		return fmt.Errorf("DEFAULT_CHUNK_SIZE must be positive, got %d", c.DefaultChunkSize)
	}

	if c.DefaultChunkSize > c.MaxFileSize {
		return fmt.Errorf("DEFAULT_CHUNK_SIZE (%d) cannot exceed MAX_FILE_SIZE (%d)", c.DefaultChunkSize, c.MaxFileSize)
	}

	if len(c.AllowedRoles) == 0 {
		return fmt.Errorf("ALLOWED_ROLES cannot be empty")
	}
	for _, role := range c.AllowedRoles {
		switch role {
		case "creator", "member", "subscriber":
		default:
			return fmt.Errorf("ALLOWED_ROLES contains unknown role %q", role)
		}
	}

	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required")
	}

	if c.SweepIdleHours <= 0 {
		return fmt.Errorf("SWEEP_IDLE_HOURS must be positive, got %d", c.SweepIdleHours)
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves an int64 environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated environment variable as a slice
func getEnvList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	var list []string
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			list = append(list, p)
		}
	}
	return list
}
