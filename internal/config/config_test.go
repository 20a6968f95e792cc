package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %q", cfg.App.Addr())
	}
	if cfg.Auth.AccessTokenTTLMinutes != 24*60 {
		t.Errorf("ttl = %d, want 1440", cfg.Auth.AccessTokenTTLMinutes)
	}
	if cfg.AI.Enabled() {
		t.Error("AI should be disabled without an API key")
	}
	if cfg.App.RequestTimeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.App.RequestTimeout())
	}
}

func TestLoadGroqKeyFallback(t *testing.T) {
	t.Setenv("AI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.APIKey != "gsk-test" || !cfg.AI.Enabled() {
		t.Errorf("expected GROQ_API_KEY fallback, got %q", cfg.AI.APIKey)
	}
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid REDIS_DB")
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("REDIS_DB", "0")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Errorf("port = %q", cfg.App.Port)
	}
	if cfg.App.RequestTimeoutSeconds != 30 {
		t.Errorf("timeout seconds = %d, want fallback 30", cfg.App.RequestTimeoutSeconds)
	}
}

func TestValidateProductionSecret(t *testing.T) {
	cfg := &Config{App: AppConfig{Env: "production"}, Auth: AuthConfig{JWTSecret: "dev-secret"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected production to reject the dev secret")
	}
	cfg.Auth.JWTSecret = "a-real-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAdminPassword(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{JWTSecret: "x", AdminEmail: "root@example.com", AdminPassword: "123"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected short admin password to be rejected")
	}
}

func TestSizeHelpers(t *testing.T) {
	if got := (StorageConfig{}).MaxAttachmentBytes(); got != 10*1024*1024 {
		t.Errorf("default attachment limit = %d", got)
	}
	if got := (AppConfig{BodyLimitMB: 2}).BodyLimit(); got != 2*1024*1024 {
		t.Errorf("body limit = %d", got)
	}
}
