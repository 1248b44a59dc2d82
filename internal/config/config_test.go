package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadReportsAllMissingKeys(t *testing.T) {
	_, err := LoadFrom(envFrom(nil))

	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"DATABASE_URL", "JWT_SECRET"}, missing.Keys)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(envFrom(map[string]string{
		"DATABASE_URL": "postgres://crm@localhost:5432/crm",
		"JWT_SECRET":   "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "600-M", cfg.WebhookRateLimit)
	assert.Equal(t, "720h0m0s", cfg.JWTAccessDuration.String())
	assert.Nil(t, cfg.WhatsAppFallbackTenant)
	assert.False(t, cfg.S3.Enabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadInjectsDatabasePassword(t *testing.T) {
	cfg, err := LoadFrom(envFrom(map[string]string{
		"DATABASE_URL":      "postgres://crm@db:5432/crm?sslmode=disable",
		"DATABASE_PASSWORD": "p@ss",
		"JWT_SECRET":        "s3cret",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://crm:p%40ss@db:5432/crm?sslmode=disable", cfg.DatabaseURL)
}

func TestLoadRejectsMalformedFallbackTenant(t *testing.T) {
	_, err := LoadFrom(envFrom(map[string]string{
		"DATABASE_URL":       "postgres://crm@localhost/crm",
		"JWT_SECRET":         "s3cret",
		"WHATSAPP_TENANT_ID": "not-a-uuid",
	}))

	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "WHATSAPP_TENANT_ID", invalid.Key)
}

func TestLoadParsesFallbackTenant(t *testing.T) {
	cfg, err := LoadFrom(envFrom(map[string]string{
		"DATABASE_URL":       "postgres://crm@localhost/crm",
		"JWT_SECRET":         "s3cret",
		"WHATSAPP_TENANT_ID": "6f1c2b9e-8a42-4a2e-9d55-0f7d2a1b3c4d",
	}))
	require.NoError(t, err)
	require.NotNil(t, cfg.WhatsAppFallbackTenant)
	assert.Equal(t, "6f1c2b9e-8a42-4a2e-9d55-0f7d2a1b3c4d", cfg.WhatsAppFallbackTenant.String())
}

func TestLoadTracing(t *testing.T) {
	base := map[string]string{
		"DATABASE_URL": "postgres://crm@localhost:5432/crm",
		"JWT_SECRET":   "s3cret",
	}
	with := func(extra map[string]string) map[string]string {
		m := map[string]string{}
		for k, v := range base {
			m[k] = v
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	cfg, err := LoadFrom(envFrom(base))
	require.NoError(t, err)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "leadcrm-api", cfg.Tracing.ServiceName)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)

	_, err = LoadFrom(envFrom(with(map[string]string{"ENABLE_TELEMETRY": "true"})))
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "OTEL_EXPORTER_OTLP_ENDPOINT", invalid.Key)

	_, err = LoadFrom(envFrom(with(map[string]string{"OTEL_TRACES_SAMPLE_RATIO": "2"})))
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "OTEL_TRACES_SAMPLE_RATIO", invalid.Key)

	cfg, err = LoadFrom(envFrom(with(map[string]string{
		"ENABLE_TELEMETRY":            "true",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318",
		"OTEL_TRACES_SAMPLE_RATIO":    "0.25",
	})))
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
}
