package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.WebhookEvent("meta", "created")
		m.LeadCreated("meta")
		m.QuotaDenied("leads")
		m.ClientConnected(1)
	})
}

func TestMetricsCountAndServe(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.WebhookEvent("whatsapp", "stored")
	m.WebhookEvent("whatsapp", "stored")
	m.QuotaDenied("leads")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebhookEventsTotal.WithLabelValues("whatsapp", "stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotaDenialsTotal.WithLabelValues("leads")))

	e := echo.New()
	e.GET("/metrics", m.Handler())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crm_webhook_events_total")
}
