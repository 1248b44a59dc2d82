// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds every recognized environment option
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string

	JWTSecret         string
	JWTAccessDuration time.Duration

	WhatsAppVerifyToken string
	// WhatsAppFallbackTenant is the single-tenant escape hatch used when a
	// phone_number_id has no workspace binding. Nil disables it.
	WhatsAppFallbackTenant *uuid.UUID

	RedisURL string

	S3 S3Config

	WebhookRateLimit string

	Tracing TracingConfig
}

// TracingConfig configures OTLP span export
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

// S3Config configures the webhook payload archive
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// Enabled reports whether enough settings are present to archive payloads
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// MissingError lists required keys absent from the environment
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// InvalidError reports a present but malformed value
type InvalidError struct {
	Key    string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// Load reads the configuration using os.Getenv
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through getenv. All missing required
// keys are reported together.
func LoadFrom(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var missing []string
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET"} {
		if get(key, "") == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Keys: missing}
	}

	cfg := &Config{
		Env:                 get("ENV", "production"),
		Port:                get("PORT", "8080"),
		LogLevel:            get("LOG_LEVEL", "info"),
		JWTSecret:           get("JWT_SECRET", ""),
		WhatsAppVerifyToken: get("WHATSAPP_VERIFY_TOKEN", ""),
		RedisURL:            get("REDIS_URL", ""),
		WebhookRateLimit:    get("WEBHOOK_RATE_LIMIT", "600-M"),
		Tracing: TracingConfig{
			Enabled:     get("ENABLE_TELEMETRY", "false") == "true",
			Endpoint:    get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: get("OTEL_SERVICE_NAME", "leadcrm-api"),
		},
		S3: S3Config{
			Endpoint:  get("S3_ENDPOINT", ""),
			AccessKey: get("S3_ACCESS_KEY", ""),
			SecretKey: get("S3_SECRET_KEY", ""),
			Bucket:    get("S3_BUCKET", ""),
			Region:    get("S3_REGION", "us-east-1"),
		},
	}

	dsn, err := withPassword(get("DATABASE_URL", ""), get("DATABASE_PASSWORD", ""))
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = dsn

	cfg.JWTAccessDuration, err = time.ParseDuration(get("JWT_ACCESS_DURATION", "720h"))
	if err != nil || cfg.JWTAccessDuration <= 0 {
		return nil, &InvalidError{Key: "JWT_ACCESS_DURATION", Reason: "must be a positive duration"}
	}

	cfg.Tracing.SampleRatio, err = strconv.ParseFloat(get("OTEL_TRACES_SAMPLE_RATIO", "1"), 64)
	if err != nil || cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return nil, &InvalidError{Key: "OTEL_TRACES_SAMPLE_RATIO", Reason: "must be between 0 and 1"}
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		return nil, &InvalidError{Key: "OTEL_EXPORTER_OTLP_ENDPOINT", Reason: "required when ENABLE_TELEMETRY=true"}
	}

	if raw := get("WHATSAPP_TENANT_ID", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, &InvalidError{Key: "WHATSAPP_TENANT_ID", Reason: "must be a uuid"}
		}
		cfg.WhatsAppFallbackTenant = &id
	}

	return cfg, nil
}

// IsDevelopment reports whether ENV=development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// withPassword injects the service credential into a postgres URL that
// carries a user but no password.
func withPassword(dsn, password string) (string, error) {
	if password == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "", &InvalidError{Key: "DATABASE_URL", Reason: "must be a URL when DATABASE_PASSWORD is set"}
	}
	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, password)
	return u.String(), nil
}
