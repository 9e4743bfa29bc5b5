package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.EnableAI || !cfg.EnableVoice {
		t.Fatalf("EnableAI/EnableVoice = %v/%v, want true/true", cfg.EnableAI, cfg.EnableVoice)
	}
	if cfg.RequiredSamples != 3 {
		t.Fatalf("RequiredSamples = %d, want 3", cfg.RequiredSamples)
	}
	if cfg.MaxFileSize != 10<<20 {
		t.Fatalf("MaxFileSize = %d, want %d", cfg.MaxFileSize, 10<<20)
	}
	if cfg.MaxTextLength != 5000 {
		t.Fatalf("MaxTextLength = %d, want 5000", cfg.MaxTextLength)
	}
	if cfg.ModelLoadTimeout != 120*time.Second {
		t.Fatalf("ModelLoadTimeout = %v, want 120s", cfg.ModelLoadTimeout)
	}
	if cfg.StoreMode != "disk" {
		t.Fatalf("StoreMode = %q, want %q", cfg.StoreMode, "disk")
	}
}

func TestLoadRejectsPostgresWithoutDatabaseURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("STORE_MODE", "postgres")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for STORE_MODE=postgres without DATABASE_URL")
	}
}

func TestLoadRejectsTinyModelTimeout(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MODEL_LOAD_TIMEOUT", "1s")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for MODEL_LOAD_TIMEOUT below 5s")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("REQUIRED_SAMPLES", "5")
	t.Setenv("ENABLE_VOICE", "off")
	t.Setenv("MODEL_LOAD_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequiredSamples != 5 {
		t.Fatalf("RequiredSamples = %d, want 5", cfg.RequiredSamples)
	}
	if cfg.EnableVoice {
		t.Fatalf("EnableVoice = true, want false")
	}
	if cfg.ModelLoadTimeout != 90*time.Second {
		t.Fatalf("ModelLoadTimeout = %v, want 90s", cfg.ModelLoadTimeout)
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"ENABLE_AI",
		"ENABLE_VOICE",
		"MODEL_PROVIDER",
		"MODEL_ID",
		"OLLAMA_URL",
		"MODEL_LOAD_TIMEOUT",
		"ELEVENLABS_API_KEY",
		"ELEVENLABS_BASE_URL",
		"ELEVENLABS_TTS_MODEL_ID",
		"REQUIRED_SAMPLES",
		"MAX_FILE_SIZE",
		"MAX_TEXT_LENGTH",
		"STORE_MODE",
		"STORE_DIR",
		"STORE_QUOTA_BYTES",
		"DATABASE_URL",
		"VAULT_PASSPHRASE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
