package middleware

import (
	"leadcrm/internal/telemetry"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// Stack returns the middleware every request passes through, outermost
// first. Recover sits inside the logger and the span so a panicking request
// is still logged, counted and traced as a 500.
func Stack(metrics *telemetry.Metrics) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		RequestID(),
		RequestLogger(metrics),
		Telemetry(),
		echomiddleware.Recover(),
	}
}
