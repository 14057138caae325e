package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/depin-orcha/orcha/app/dto"
	httpdto "github.com/depin-orcha/orcha/app/dto/http"
	"github.com/depin-orcha/orcha/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimitService: rateLimitService}
}

// Limit enforces the per-key request budget. It relies on RequireAPIKey
// having stored the key info; requests without one pass through untouched.
func (m *RateLimitMiddleware) Limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		info, ok := c.Get(ContextKeyAPIKey).(*dto.APIKeyInfo)
		if !ok {
			return next(c)
		}

		err := m.rateLimitService.Check(c.Request().Context(), info.ID, c.Request().URL.Path, info.RateLimitPerMinute)
		if err != nil {
			if errors.Is(err, service.ErrRateLimitExceeded) {
				retryAfter := int64(m.rateLimitService.Window().Seconds())
				c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				c.Response().Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Unix()+retryAfter, 10))
				return c.JSON(http.StatusTooManyRequests, httpdto.ErrorResponse{
					Error:     "RATE_LIMIT_EXCEEDED",
					Message:   fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfter),
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
			}

			logrus.WithError(err).Error("Rate limit check failed")
			return c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{
				Error:     "INTERNAL_ERROR",
				Message:   "internal server error",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}

		return next(c)
	}
}
