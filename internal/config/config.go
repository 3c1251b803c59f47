package config

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	ListenAddr  string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTExpiry   time.Duration
}

func Load() *Config {
	config := &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DB_DSN"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTIssuer:   getEnv("JWT_ISS", "telefonia-inventory-api"),
		JWTAudience: getEnv("JWT_AUD", "telefonia-inventory-api"),
		JWTExpiry:   24 * time.Hour, // Default to 24 hours
	}

	// Parse JWT expiry from environment if provided
	if expiryStr := os.Getenv("JWT_EXPIRY"); expiryStr != "" {
		if expiry, err := time.ParseDuration(expiryStr); err == nil {
			config.JWTExpiry = expiry
		}
	}

	return config
}

// LoadAndValidate loads the configuration and rejects values the server
// cannot safely start with.
func LoadAndValidate() (*Config, error) {
	cfg := Load()

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, errors.New("JWT_SECRET must be at least 16 characters")
	}
	if cfg.JWTIssuer == "" {
		return nil, errors.New("JWT_ISS must not be empty")
	}
	if cfg.JWTAudience == "" {
		return nil, errors.New("JWT_AUD must not be empty")
	}
	if cfg.JWTExpiry <= 0 {
		return nil, errors.New("JWT_EXPIRY must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
