package middleware

import (
	"net/http"
	"time"

	"chyll/internal/caching"

	"github.com/labstack/echo/v4"
)

// RateLimit throttles unauthenticated endpoints per client IP. Limits live in
// redis so they hold across instances. Open on redis failure: throttling is
// protection, not access control.
func RateLimit(cache caching.CacheService, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Path() + ":" + c.RealIP()
			limited, err := cache.IsRateLimited(c.Request().Context(), key, limit, window)
			if err == nil && limited {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			}
			return next(c)
		}
	}
}
