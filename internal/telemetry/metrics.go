package telemetry

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	WebhookEventsTotal *prometheus.CounterVec
	LeadsCreatedTotal  *prometheus.CounterVec
	QuotaDenialsTotal  *prometheus.CounterVec
	RealtimeClients    prometheus.Gauge
	TenantsAtQuota     *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_webhook_events_total",
				Help: "Webhook deliveries by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		LeadsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_leads_created_total",
				Help: "Leads created by origin",
			},
			[]string{"origin"},
		),
		QuotaDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_quota_denials_total",
				Help: "Quota checks that denied a creation",
			},
			[]string{"resource"},
		),
		RealtimeClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crm_realtime_clients",
				Help: "Connected realtime WebSocket clients",
			},
		),
		TenantsAtQuota: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crm_tenants_at_quota",
				Help: "Tenants whose usage reached the ceiling, by resource",
			},
			[]string{"resource"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WebhookEventsTotal,
		m.LeadsCreatedTotal,
		m.QuotaDenialsTotal,
		m.RealtimeClients,
		m.TenantsAtQuota,
	)

	return m
}

// WebhookEvent counts one webhook delivery
func (m *Metrics) WebhookEvent(channel, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(channel, outcome).Inc()
}

// LeadCreated counts one created lead
func (m *Metrics) LeadCreated(origin string) {
	if m == nil {
		return
	}
	m.LeadsCreatedTotal.WithLabelValues(origin).Inc()
}

// QuotaDenied counts one denied creation
func (m *Metrics) QuotaDenied(resource string) {
	if m == nil {
		return
	}
	m.QuotaDenialsTotal.WithLabelValues(resource).Inc()
}

// ClientConnected adjusts the realtime client gauge by delta
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.RealtimeClients.Add(float64(delta))
}

// SetTenantsAtQuota records how many tenants are at their resource ceiling
func (m *Metrics) SetTenantsAtQuota(resource string, n int) {
	if m == nil {
		return
	}
	m.TenantsAtQuota.WithLabelValues(resource).Set(float64(n))
}

// Handler serves the registry for scraping
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
