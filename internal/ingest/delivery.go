package ingest

import (
	"context"

	"leadcrm/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// delivery tracks one webhook delivery through the pipeline. Every
// outcome is counted and stamped on the delivery's span.
type delivery struct {
	channel string
	metrics *telemetry.Metrics
	span    trace.Span
}

func (p *Pipeline) startDelivery(ctx context.Context, channel string) (context.Context, *delivery) {
	ctx, span := telemetry.StartSpan(ctx, "ingest."+channel, telemetry.AttrChannel.String(channel))
	return ctx, &delivery{channel: channel, metrics: p.metrics, span: span}
}

func (d *delivery) outcome(outcome string) {
	d.metrics.WebhookEvent(d.channel, outcome)
	d.span.SetAttributes(telemetry.AttrOutcome.String(outcome))
}

func (d *delivery) tenant(id uuid.UUID) {
	d.span.SetAttributes(telemetry.AttrTenantID.String(id.String()))
}

func (d *delivery) end(err error) {
	telemetry.EndSpan(d.span, err)
}
