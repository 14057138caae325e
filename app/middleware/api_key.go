package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	httpdto "github.com/depin-orcha/orcha/app/dto/http"
	"github.com/depin-orcha/orcha/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	ContextKeyAPIKey = "api_key_info"
	HeaderAPIKey     = "X-API-Key"
)

type APIKeyMiddleware struct {
	keyService service.APIKeyService
}

func NewAPIKeyMiddleware(keyService service.APIKeyService) *APIKeyMiddleware {
	return &APIKeyMiddleware{keyService: keyService}
}

func (m *APIKeyMiddleware) RequireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Let CORS preflight pass.
		if c.Request().Method == http.MethodOptions {
			return next(c)
		}

		rawKey := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
		if rawKey == "" {
			return authError(c, http.StatusUnauthorized, "API key is required")
		}

		info, err := m.keyService.Validate(c.Request().Context(), rawKey)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidAPIKey):
				return authError(c, http.StatusUnauthorized, "Invalid API key")
			case errors.Is(err, service.ErrExpiredAPIKey):
				return authError(c, http.StatusUnauthorized, "API key has expired")
			case errors.Is(err, service.ErrInactiveAPIKey):
				return authError(c, http.StatusForbidden, "API key is inactive")
			default:
				logrus.WithError(err).Error("API key validation failed")
				return c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{
					Error:     "INTERNAL_ERROR",
					Message:   "internal server error",
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
			}
		}

		c.Set(ContextKeyAPIKey, info)
		return next(c)
	}
}

func authError(c echo.Context, status int, message string) error {
	return c.JSON(status, httpdto.ErrorResponse{
		Error:     "AUTHENTICATION_ERROR",
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
