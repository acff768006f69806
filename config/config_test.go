package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty search url",
			mutate: func(cfg *Config) {
				cfg.SearchURL = ""
			},
			wantErr: "search URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.SearchURL = "http://"
			},
			wantErr: "search URL",
		},
		{
			name: "unknown backend",
			mutate: func(cfg *Config) {
				cfg.Backend = "firefox"
			},
			wantErr: "backend",
		},
		{
			name: "max delay below min delay",
			mutate: func(cfg *Config) {
				cfg.MinDelay = 3 * time.Second
				cfg.MaxDelay = time.Second
			},
			wantErr: "max delay",
		},
		{
			name: "negative navigation timeout",
			mutate: func(cfg *Config) {
				cfg.NavigationTimeout = -1 * time.Second
			},
			wantErr: "navigation timeout",
		},
		{
			name: "same output file",
			mutate: func(cfg *Config) {
				cfg.CommentsFile = cfg.ListingsFile
			},
			wantErr: "different files",
		},
		{
			name: "bad format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "zero window",
			mutate: func(cfg *Config) {
				cfg.WindowWidth = 0
			},
			wantErr: "window size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if got, want := cfg.ListingsPath(), filepath.Join("data", "airbnb_header.csv"); got != want {
		t.Fatalf("listings path = %q, want %q", got, want)
	}
	if got, want := cfg.CommentsPath(), filepath.Join("data", "airbnb_comments.csv"); got != want {
		t.Fatalf("comments path = %q, want %q", got, want)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCRAPER_URL", "https://example.test/s/homes")
	t.Setenv("SCRAPER_BACKEND", "STATIC")
	t.Setenv("SCRAPER_MIN_DELAY", "0s")
	t.Setenv("SCRAPER_MAX_DELAY", "250ms")
	t.Setenv("SCRAPER_HEADLESS", "false")
	t.Setenv("DATABASE_URL", "postgres://localhost/rentals")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.SearchURL != "https://example.test/s/homes" {
		t.Fatalf("search url = %q", cfg.SearchURL)
	}
	if cfg.Backend != BackendStatic {
		t.Fatalf("backend = %q, want static", cfg.Backend)
	}
	if cfg.MinDelay != 0 || cfg.MaxDelay != 250*time.Millisecond {
		t.Fatalf("delays = %v..%v", cfg.MinDelay, cfg.MaxDelay)
	}
	if cfg.Headless {
		t.Fatalf("headless should be disabled")
	}
	if cfg.DatabaseURL != "postgres://localhost/rentals" {
		t.Fatalf("database url = %q", cfg.DatabaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("SCRAPER_WINDOW_WIDTH", "wide")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil || !strings.Contains(err.Error(), "SCRAPER_WINDOW_WIDTH") {
		t.Fatalf("expected SCRAPER_WINDOW_WIDTH error, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SCRAPER_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SCRAPER_TEST_DOTENV") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if v, ok := EnvString("SCRAPER_TEST_DOTENV"); !ok || v != "loaded" {
		t.Fatalf("SCRAPER_TEST_DOTENV = %q, %v", v, ok)
	}
}
