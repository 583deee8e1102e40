package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Extract  ExtractConfig
	Settings SettingsConfig
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
}

// ExtractConfig holds extraction-service client configuration
type ExtractConfig struct {
	DefaultEndpoint string
	Timeout         time.Duration
}

// SettingsConfig holds the persisted-settings store configuration
type SettingsConfig struct {
	DBPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           getEnv("FORM_EXTRACTOR_ADDR", ":8090"),
			MaxUploadBytes: int64(getEnvAsInt("FORM_EXTRACTOR_MAX_UPLOAD_MB", 50)) << 20,
		},
		Extract: ExtractConfig{
			DefaultEndpoint: getEnv("FORM_EXTRACTOR_ENDPOINT", "http://localhost:8000/extract"),
			Timeout:         getEnvAsDuration("FORM_EXTRACTOR_TIMEOUT", 120*time.Second),
		},
		Settings: SettingsConfig{
			DBPath: getEnv("FORM_EXTRACTOR_DB", "form-extractor.db"),
		},
	}
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "FORM_EXTRACTOR_ADDR is required", ErrInvalidInput)
	}
	if c.Extract.DefaultEndpoint == "" {
		return NewAppError("CONFIG_ERROR", "FORM_EXTRACTOR_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Settings.DBPath == "" {
		return NewAppError("CONFIG_ERROR", "FORM_EXTRACTOR_DB is required", ErrInvalidInput)
	}
	return nil
}
