package config_test

import (
	"quotecard/internal/config"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPAddr != ":3000" {
		t.Fatalf("unexpected HTTP address: %q", cfg.HTTPAddr)
	}

	if cfg.MaxInputChars != 500 {
		t.Fatalf("unexpected input limit: %d", cfg.MaxInputChars)
	}

	if cfg.SummarizerTimeout != 60*time.Second {
		t.Fatalf("unexpected summarizer timeout: %s", cfg.SummarizerTimeout)
	}

	if cfg.SummarizerTemperature != 0.6 {
		t.Fatalf("unexpected temperature: %v", cfg.SummarizerTemperature)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_USERS", "1,2")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("MAX_INPUT_CHARS", "280")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.AllowedUsers) != 2 || cfg.AllowedUsers[1] != 2 {
		t.Fatalf("unexpected allowed users: %v", cfg.AllowedUsers)
	}

	if cfg.SessionTTL != 5*time.Minute {
		t.Fatalf("unexpected session TTL: %s", cfg.SessionTTL)
	}

	if cfg.MaxInputChars != 280 {
		t.Fatalf("unexpected input limit: %d", cfg.MaxInputChars)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MAX_INPUT_CHARS", "-1")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for negative input limit")
	}

	t.Setenv("MAX_INPUT_CHARS", "500")
	t.Setenv("SUMMARIZER_TIMEOUT", "soon")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
