package middleware

import (
	"net/http"
	"strconv"

	"leadcrm/internal/apperr"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "600-M" for 600 requests per minute.
func RateLimit(rate string) (echo.MiddlewareFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	rateLimiter := limiter.New(memory.NewStore(), parsed)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			limit, err := rateLimiter.Get(c.Request().Context(), key)
			if err != nil {
				return apperr.Upstream(err)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(limit.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(limit.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(limit.Reset, 10))

			if limit.Reached {
				log.Warn().Str("ip", key).Str("route", c.Path()).Msg("rate limit reached")
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			}

			return next(c)
		}
	}, nil
}
