// Package config loads process configuration from the environment.
//
// All settings use the FINANZAMT_ prefix and can be supplied via a .env
// file (loaded by main). The storage path and collaborator endpoints are
// plain fields handed to the pipeline at construction; there is no implicit
// process-wide state beyond the global logger.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finanzamt/internal/logger"
)

type Config struct {
	// Model collaborator (any OpenAI-compatible endpoint; Ollama exposes
	// one at /v1)
	ModelBaseURL string
	ModelAPIKey  string
	ModelName    string
	Temperature  float32
	TopP         float32
	MaxTokens    int

	// Extraction pipeline
	StageTimeout time.Duration // per-stage wall clock, not global
	MaxRetries   int           // attempts per stage before it degrades to partial
	BatchWorkers int           // bound on concurrent in-flight documents

	// Storage
	DBPath   string
	DebugDir string // trace sink root; empty disables tracing

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from the environment, applying defaults for
// everything that is not set.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	projectRoot := filepath.Join(home, ".finanzamt", getEnv("FINANZAMT_PROJECT", "default"))

	config := &Config{
		ModelBaseURL: strings.TrimRight(getEnv("FINANZAMT_MODEL_BASE_URL", "http://localhost:11434/v1"), "/"),
		ModelAPIKey:  getEnv("FINANZAMT_MODEL_API_KEY", "ollama"),
		ModelName:    getEnv("FINANZAMT_MODEL", "qwen2.5:7b-instruct-q4_K_M"),
		Temperature:  getFloatEnv("FINANZAMT_TEMPERATURE", 0.0),
		TopP:         getFloatEnv("FINANZAMT_TOP_P", 1.0),
		MaxTokens:    getIntEnv("FINANZAMT_MAX_TOKENS", 2048),

		StageTimeout: time.Duration(getIntEnv("FINANZAMT_STAGE_TIMEOUT", 60)) * time.Second,
		MaxRetries:   getIntEnv("FINANZAMT_MAX_RETRIES", 2),
		BatchWorkers: getIntEnv("FINANZAMT_BATCH_WORKERS", 2),

		DBPath:   getEnv("FINANZAMT_DB_PATH", filepath.Join(projectRoot, "finanzamt.db")),
		DebugDir: getEnv("FINANZAMT_DEBUG_DIR", filepath.Join(projectRoot, "debug")),

		LogLevel:      getEnv("FINANZAMT_LOG_LEVEL", "info"),
		LogFormat:     getEnv("FINANZAMT_LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("FINANZAMT_LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("FINANZAMT_LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ModelBaseURL == "" {
		return fmt.Errorf("FINANZAMT_MODEL_BASE_URL must not be empty")
	}
	if c.ModelName == "" {
		return fmt.Errorf("FINANZAMT_MODEL must not be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("FINANZAMT_TEMPERATURE must be within [0, 2], got %v", c.Temperature)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("FINANZAMT_MAX_RETRIES must be within [0, 10], got %d", c.MaxRetries)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("FINANZAMT_STAGE_TIMEOUT must be positive")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("FINANZAMT_BATCH_WORKERS must be at least 1")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}
