package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string

	// Browser session
	SessionDir string
	FeedURL    string
	Headless   bool

	// Ollama
	OllamaHost  string
	OllamaModel string

	// Run pacing
	MaxRepliesPerRun       int
	MinReplySpacing        time.Duration
	MaxScanAttempts        int
	MaxConsecutiveFailures int
	PostSuccessSleepMin    time.Duration
	PostSuccessSleepMax    time.Duration

	// Generation
	GenerateAttempts int
	GenerateBackoff  time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "data/replyguy.db"),
		SessionDir:   getEnv("SESSION_DIR", "data/session"),
		FeedURL:      getEnv("FEED_URL", "https://x.com/home"),
		OllamaHost:   normalizeOllamaHost(getEnv("OLLAMA_HOST", "http://localhost:11434")),
		OllamaModel:  getEnv("OLLAMA_MODEL", "gemma3:1b"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.MaxRepliesPerRun, err = getEnvInt("MAX_REPLIES_PER_RUN", 20); err != nil {
		return nil, err
	}
	if cfg.MaxScanAttempts, err = getEnvInt("MAX_SCAN_ATTEMPTS", 10); err != nil {
		return nil, err
	}
	if cfg.MaxConsecutiveFailures, err = getEnvInt("MAX_CONSECUTIVE_FAILURES", 5); err != nil {
		return nil, err
	}
	if cfg.GenerateAttempts, err = getEnvInt("GENERATE_ATTEMPTS", 3); err != nil {
		return nil, err
	}

	if cfg.MinReplySpacing, err = getEnvDuration("MIN_REPLY_SPACING", "30s"); err != nil {
		return nil, err
	}
	if cfg.PostSuccessSleepMin, err = getEnvDuration("POST_SUCCESS_SLEEP_MIN", "20s"); err != nil {
		return nil, err
	}
	if cfg.PostSuccessSleepMax, err = getEnvDuration("POST_SUCCESS_SLEEP_MAX", "40s"); err != nil {
		return nil, err
	}
	if cfg.GenerateBackoff, err = getEnvDuration("GENERATE_BACKOFF", "2s"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// ValidateForGenerate checks configuration needed for reply generation.
func (c *Config) ValidateForGenerate() error {
	if c.OllamaHost == "" {
		return fmt.Errorf("OLLAMA_HOST is required for generation")
	}
	if c.OllamaModel == "" {
		return fmt.Errorf("OLLAMA_MODEL is required for generation")
	}
	return nil
}

// ValidateForRun checks all configuration needed for a bot run.
func (c *Config) ValidateForRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateForGenerate(); err != nil {
		return err
	}
	if c.SessionDir == "" {
		return fmt.Errorf("SESSION_DIR is required")
	}
	if c.FeedURL == "" {
		return fmt.Errorf("FEED_URL is required")
	}
	if c.PostSuccessSleepMax < c.PostSuccessSleepMin {
		return fmt.Errorf("POST_SUCCESS_SLEEP_MAX must be >= POST_SUCCESS_SLEEP_MIN")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key, defaultVal string) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		val = defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// normalizeOllamaHost ensures the Ollama host has a proper URL scheme.
// This handles cases where OLLAMA_HOST is set to a bind address like "0.0.0.0"
// (used by Ollama server) instead of a client URL like "http://localhost:11434".
func normalizeOllamaHost(host string) string {
	if host == "" {
		return "http://localhost:11434"
	}

	// If it's just a bind address (0.0.0.0 or similar), use localhost instead
	if host == "0.0.0.0" || host == "0.0.0.0:11434" {
		return "http://localhost:11434"
	}

	// If it doesn't have a scheme, add http://
	if len(host) < 4 || host[:4] != "http" {
		return "http://" + host
	}

	return host
}
