package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the heirloom service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	EnableAI    bool
	EnableVoice bool

	ModelProvider    string
	ModelID          string
	OllamaURL        string
	ModelLoadTimeout time.Duration

	ElevenLabsAPIKey   string
	ElevenLabsBaseURL  string
	ElevenLabsTTSModel string

	RequiredSamples int
	MaxFileSize     int64
	MaxTextLength   int

	StoreMode       string
	StoreDir        string
	StoreQuotaBytes int64
	DatabaseURL     string

	VaultPassphrase string

	SessionInactivityTimeout time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "heirloom"),
		AllowAnyOrigin:   false,

		EnableAI:    true,
		EnableVoice: true,

		ModelProvider: envOrDefault("MODEL_PROVIDER", "auto"),
		// Small instruct model suited to on-device interview guidance.
		ModelID:          envOrDefault("MODEL_ID", "llama3.2:1b"),
		OllamaURL:        envOrDefault("OLLAMA_URL", "http://127.0.0.1:11434"),
		ModelLoadTimeout: 120 * time.Second,

		ElevenLabsAPIKey:   trimmedEnv("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL:  envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsTTSModel: envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),

		RequiredSamples: 3,
		MaxFileSize:     10 << 20,
		MaxTextLength:   5000,

		StoreMode:       envOrDefault("STORE_MODE", "disk"),
		StoreDir:        envOrDefault("STORE_DIR", ".data/heirloom"),
		StoreQuotaBytes: 256 << 20,
		DatabaseURL:     trimmedEnv("DATABASE_URL"),

		VaultPassphrase: trimmedEnv("VAULT_PASSPHRASE"),

		SessionInactivityTimeout: 30 * time.Minute,
		ShutdownTimeout:          15 * time.Second,
	}

	var err error
	cfg.EnableAI, err = boolFromEnv("ENABLE_AI", cfg.EnableAI)
	if err != nil {
		return Config{}, err
	}
	cfg.EnableVoice, err = boolFromEnv("ENABLE_VOICE", cfg.EnableVoice)
	if err != nil {
		return Config{}, err
	}
	cfg.ModelLoadTimeout, err = durationFromEnv("MODEL_LOAD_TIMEOUT", cfg.ModelLoadTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RequiredSamples, err = intFromEnv("REQUIRED_SAMPLES", cfg.RequiredSamples)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxFileSize, err = int64FromEnv("MAX_FILE_SIZE", cfg.MaxFileSize)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTextLength, err = intFromEnv("MAX_TEXT_LENGTH", cfg.MaxTextLength)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreQuotaBytes, err = int64FromEnv("STORE_QUOTA_BYTES", cfg.StoreQuotaBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.ModelLoadTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("MODEL_LOAD_TIMEOUT must be at least 5s")
	}
	if cfg.RequiredSamples < 1 {
		return Config{}, fmt.Errorf("REQUIRED_SAMPLES must be positive")
	}
	if cfg.MaxFileSize < 1024 {
		return Config{}, fmt.Errorf("MAX_FILE_SIZE must be at least 1024 bytes")
	}
	if cfg.MaxTextLength <= 0 {
		return Config{}, fmt.Errorf("MAX_TEXT_LENGTH must be positive")
	}
	if cfg.StoreQuotaBytes <= 0 {
		return Config{}, fmt.Errorf("STORE_QUOTA_BYTES must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.StoreMode)) {
	case "memory", "disk", "postgres":
	default:
		return Config{}, fmt.Errorf("invalid STORE_MODE: %q (expected memory|disk|postgres)", cfg.StoreMode)
	}
	if strings.EqualFold(cfg.StoreMode, "postgres") && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("STORE_MODE=postgres requires DATABASE_URL")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
