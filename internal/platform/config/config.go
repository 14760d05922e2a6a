package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully resolved runtime configuration. Values come from the
// environment, optionally seeded from a local .env file.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Stripe    StripeConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port string
	// PortFallbacks is how many successive ports to try when the
	// configured one is already bound.
	PortFallbacks   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret string
}

// StripeConfig holds payment provider credentials. An unset WebhookSecret
// makes the webhook endpoint reject every delivery.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// SMTPConfig holds mail delivery settings. When Host or From is empty the
// mailer degrades to a logging no-op.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimitConfig controls the per-client request limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ValidationError reports every missing or malformed setting at once.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Fields, ", "))
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:            valueOr(getenv("PORT"), "8080"),
			PortFallbacks:   intOr(getenv("PORT_FALLBACK_ATTEMPTS"), 5),
			ReadTimeout:     durationOr(getenv("SERVER_READ_TIMEOUT"), 15*time.Second),
			WriteTimeout:    durationOr(getenv("SERVER_WRITE_TIMEOUT"), 30*time.Second),
			IdleTimeout:     durationOr(getenv("SERVER_IDLE_TIMEOUT"), 60*time.Second),
			ShutdownTimeout: durationOr(getenv("SERVER_SHUTDOWN_TIMEOUT"), 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getenv("DATABASE_URL"),
			MaxOpenConns:    intOr(getenv("DB_MAX_OPEN_CONNS"), 25),
			MaxIdleConns:    intOr(getenv("DB_MAX_IDLE_CONNS"), 5),
			ConnMaxLifetime: durationOr(getenv("DB_CONN_MAX_LIFETIME"), 30*time.Minute),
			MigrationsPath:  valueOr(getenv("DB_MIGRATIONS_PATH"), "migrations"),
		},
		Auth: AuthConfig{
			JWTSecret: getenv("SUPABASE_JWT_SECRET"),
		},
		Stripe: StripeConfig{
			SecretKey:     getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: getenv("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:    valueOr(getenv("CHECKOUT_SUCCESS_URL"), "http://localhost:3000/checkout/success"),
			CancelURL:     valueOr(getenv("CHECKOUT_CANCEL_URL"), "http://localhost:3000/checkout/cancel"),
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST"),
			Port:     intOr(getenv("SMTP_PORT"), 587),
			Username: getenv("SMTP_USERNAME"),
			Password: getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: floatOr(getenv("RATE_LIMIT_RPS"), 10),
			Burst:             intOr(getenv("RATE_LIMIT_BURST"), 20),
		},
		LogLevel: valueOr(getenv("LOG_LEVEL"), "info"),
	}

	var missing []string
	if cfg.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	if cfg.Stripe.SecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if len(missing) > 0 {
		return Config{}, &ValidationError{Fields: missing}
	}
	return cfg, nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func intOr(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func floatOr(value string, fallback float64) float64 {
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
