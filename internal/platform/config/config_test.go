package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := fromEnv(envMap(map[string]string{
		"DATABASE_URL":        "postgres://localhost/marketplace",
		"SUPABASE_JWT_SECRET": "secret",
		"STRIPE_SECRET_KEY":   "sk_test_123",
	}))
	if err != nil {
		t.Fatalf("fromEnv returned error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Server.PortFallbacks != 5 {
		t.Errorf("default port fallbacks = %d, want 5", cfg.Server.PortFallbacks)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("default smtp port = %d, want 587", cfg.SMTP.Port)
	}
	if cfg.RateLimit.RequestsPerSecond != 10 || cfg.RateLimit.Burst != 20 {
		t.Errorf("rate limit defaults = %v/%v", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log level = %q", cfg.LogLevel)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := fromEnv(envMap(map[string]string{
		"DATABASE_URL":           "postgres://localhost/marketplace",
		"SUPABASE_JWT_SECRET":    "secret",
		"STRIPE_SECRET_KEY":      "sk_test_123",
		"PORT":                   "9090",
		"SERVER_READ_TIMEOUT":    "5s",
		"RATE_LIMIT_RPS":         "2.5",
		"DB_MAX_OPEN_CONNS":      "50",
		"PORT_FALLBACK_ATTEMPTS": "2",
	}))
	if err != nil {
		t.Fatalf("fromEnv returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("rps = %v, want 2.5", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("max open conns = %d, want 50", cfg.Database.MaxOpenConns)
	}
	if cfg.Server.PortFallbacks != 2 {
		t.Errorf("port fallbacks = %d, want 2", cfg.Server.PortFallbacks)
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	_, err := fromEnv(envMap(map[string]string{
		"DATABASE_URL": "postgres://localhost/marketplace",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("fields = %v, want both missing keys reported", verr.Fields)
	}
	if !strings.Contains(verr.Error(), "SUPABASE_JWT_SECRET") || !strings.Contains(verr.Error(), "STRIPE_SECRET_KEY") {
		t.Errorf("error message %q missing field names", verr.Error())
	}
}

func TestFromEnvMalformedNumbersFallBack(t *testing.T) {
	cfg, err := fromEnv(envMap(map[string]string{
		"DATABASE_URL":        "postgres://localhost/marketplace",
		"SUPABASE_JWT_SECRET": "secret",
		"STRIPE_SECRET_KEY":   "sk_test_123",
		"SMTP_PORT":           "not-a-number",
		"SERVER_READ_TIMEOUT": "soon",
	}))
	if err != nil {
		t.Fatalf("fromEnv returned error: %v", err)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("smtp port = %d, want default 587", cfg.SMTP.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("read timeout = %v, want default 15s", cfg.Server.ReadTimeout)
	}
}
