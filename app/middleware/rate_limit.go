package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/ratelimit"
	"github.com/leadforge/leadforge/utils"
)

// RateLimitMiddleware throttles the public form endpoints per client IP
type RateLimitMiddleware struct {
	limiter     ratelimit.Limiter
	abuseLogger services.AbuseLogger
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware(limiter ratelimit.Limiter, abuseLogger services.AbuseLogger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:     limiter,
		abuseLogger: abuseLogger,
	}
}

// Limit rejects requests once the per-IP budget for the window is spent.
// A limiter backend error fails open so an outage never blocks the funnel.
func (m *RateLimitMiddleware) Limit() fiber.Handler {
	return func(c fiber.Ctx) error {
		key := c.IP()
		if key == "" {
			key = "unknown"
		}

		allowed, err := m.limiter.Allow(context.Background(), key)
		if err != nil {
			return c.Next()
		}
		if !allowed {
			route := c.Path()
			if r := c.Route(); r != nil && r.Path != "" {
				route = r.Path
			}
			rateLimitedTotal.WithLabelValues(route).Inc()

			if m.abuseLogger != nil {
				m.abuseLogger.Log(&models.SuspiciousEvent{
					ReasonCode:    models.ReasonRateLimitExceeded,
					Severity:      models.SeverityLow,
					IPHash:        utils.HashSHA256Ptr(key),
					UserAgentHash: utils.HashSHA256Ptr(c.Get("User-Agent")),
					CreatedAt:     utils.UTCNow(),
				})
			}

			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests, slow down",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		}

		return c.Next()
	}
}
