package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// KeyLimiter decides whether a request identified by key may proceed.
type KeyLimiter interface {
	Allow(key string) bool
}

// RateLimit rejects requests with 429 when the limiter denies the client IP.
func RateLimit(limiter KeyLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter != nil && !limiter.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
