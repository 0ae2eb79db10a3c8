package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BEDROCK_MODEL_ID", "")
	t.Setenv("CONFIG_CACHE_TTL", "")
	t.Setenv("REMINDER_MAX_ATTEMPTS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ConfigCacheTTL != 10*time.Minute {
		t.Fatalf("expected default config cache ttl, got %s", cfg.ConfigCacheTTL)
	}
	if cfg.ReminderMaxAttempts != 3 {
		t.Fatalf("expected default retry ceiling, got %d", cfg.ReminderMaxAttempts)
	}
	if cfg.ReminderRetryBackoff != 5*time.Minute {
		t.Fatalf("expected default retry backoff, got %s", cfg.ReminderRetryBackoff)
	}
	if cfg.DecisionProvider != "bedrock" {
		t.Fatalf("expected default decision provider, got %s", cfg.DecisionProvider)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REMINDER_BATCH_SIZE", "25")
	t.Setenv("REMINDER_RETRY_BACKOFF", "90s")
	t.Setenv("DECISION_PROVIDER", "Gemini")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.ReminderBatchSize != 25 {
		t.Fatalf("expected batch size override, got %d", cfg.ReminderBatchSize)
	}
	if cfg.ReminderRetryBackoff != 90*time.Second {
		t.Fatalf("expected backoff override, got %s", cfg.ReminderRetryBackoff)
	}
	if cfg.DecisionProvider != "gemini" {
		t.Fatalf("expected decision provider lowercased, got %s", cfg.DecisionProvider)
	}
	if !cfg.UseMemoryQueue {
		t.Fatal("expected memory queue enabled")
	}
}
