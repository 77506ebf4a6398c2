package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"GEMINI_API_KEY", "VITE_GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY", "MONGO_URI", "POSTGRES_DSN", "REMOTE_BACKEND"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AIConfigured() {
		t.Fatalf("expected no AI credential")
	}
	if cfg.RemoteBackend != "" {
		t.Fatalf("expected local-only mode, got backend %q", cfg.RemoteBackend)
	}
	if cfg.ChunkPages != 2 || cfg.BatchSize != 5 {
		t.Fatalf("unexpected chunk/batch defaults: %d/%d", cfg.ChunkPages, cfg.BatchSize)
	}
	if cfg.AIRetryBase != 1500*time.Millisecond {
		t.Fatalf("unexpected retry base %v", cfg.AIRetryBase)
	}
	if cfg.LocalStoreKey != "chefshelf_recipes" {
		t.Fatalf("unexpected local store key %q", cfg.LocalStoreKey)
	}
}

func TestLoadConfigKeyFallbackChain(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("VITE_GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "from-google")
	t.Setenv("API_KEY", "from-generic")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GeminiAPIKey != "from-google" {
		t.Fatalf("expected GOOGLE_API_KEY to win, got %q", cfg.GeminiAPIKey)
	}
}

func TestLoadConfigDetectsBackend(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "")
	t.Setenv("MONGO_URI", "")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/chefshelf")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RemoteBackend != BackendPostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.RemoteBackend)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown provider", "AI_PROVIDER", "llama"},
		{"chunk too large", "CHUNK_PAGES", "81"},
		{"chunk zero", "CHUNK_PAGES", "0"},
		{"unknown pdf method", "PDF_EXTRACTION_METHOD", "ocr"},
		{"zero batch", "BATCH_SIZE", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Second},
		{"250ms", 250 * time.Millisecond},
		{"2000", 2 * time.Second},
		{"soon", time.Second},
	}

	for _, tc := range cases {
		t.Setenv("TEST_DURATION", tc.value)
		if got := getEnvDuration("TEST_DURATION", time.Second); got != tc.want {
			t.Fatalf("getEnvDuration(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
