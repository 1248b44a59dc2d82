package middleware

import (
	"leadcrm/internal/telemetry"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// Telemetry opens one span per request, continuing a trace propagated by the
// caller. Without a configured provider the spans are no-ops.
func Telemetry() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := telemetry.StartSpan(ctx, req.Method+" "+route,
				attribute.String("http.method", req.Method),
				attribute.String("http.route", route),
				attribute.String("user_agent.original", req.UserAgent()),
			)
			if requestID, ok := c.Get(requestIDKey).(string); ok {
				span.SetAttributes(attribute.String("crm.request_id", requestID))
			}
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			// the session is only known once the auth middleware ran
			if tenantID, ok := TenantFrom(c); ok {
				span.SetAttributes(telemetry.AttrTenantID.String(tenantID.String()))
			}
			status := c.Response().Status
			if err != nil {
				status = StatusOf(err)
			}
			span.SetAttributes(attribute.Int("http.status_code", status))
			telemetry.EndSpan(span, err)

			return err
		}
	}
}
