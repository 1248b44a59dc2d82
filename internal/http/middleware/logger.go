package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"leadcrm/internal/apperr"
	"leadcrm/internal/telemetry"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger writes one structured line per request and records the HTTP
// metrics. Errors are rendered here so the logged status is the one sent.
func RequestLogger(metrics *telemetry.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			if metrics != nil {
				metrics.HTTPRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
				metrics.HTTPRequestDuration.WithLabelValues(c.Request().Method, route).Observe(latency.Seconds())
			}

			logger := Logger(c)
			var event *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				event = logger.Error()
			case status >= http.StatusBadRequest:
				event = logger.Warn()
			default:
				event = logger.Info()
			}
			event = event.
				Str("method", c.Request().Method).
				Str("route", route).
				Int("status", status).
				Dur("latency", latency)
			if tenantID, ok := TenantFrom(c); ok {
				event = event.Str("tenant_id", tenantID.String())
			}
			event.Msg("request")

			return nil
		}
	}
}

// Logger returns the request scoped logger, falling back to the global one
func Logger(c echo.Context) *zerolog.Logger {
	logger := zerolog.Ctx(c.Request().Context())
	if logger.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return logger
}

// StatusOf returns the status code err will be rendered with
func StatusOf(err error) int {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return apperr.HTTPStatus(apperr.KindOf(err))
}
