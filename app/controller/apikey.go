package controller

import (
	"errors"
	"net/http"
	"strconv"

	dto "github.com/depin-orcha/orcha/app/dto/http"
	"github.com/depin-orcha/orcha/app/service"

	"github.com/labstack/echo/v4"
)

type APIKeyController struct {
	keyService service.APIKeyService
}

func NewAPIKeyController(keyService service.APIKeyService) *APIKeyController {
	return &APIKeyController{keyService: keyService}
}

func (c *APIKeyController) Create(ctx echo.Context) error {
	var req dto.CreateAPIKeyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	rawKey, info, err := c.keyService.Create(ctx.Request().Context(), service.CreateAPIKeyParams{
		Name:               req.Name,
		Description:        req.Description,
		ExpiresInDays:      req.ExpiresInDays,
		RateLimitPerMinute: req.RateLimitPerMinute,
		Permissions:        req.Permissions,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	// The raw key is only available in this response; it is stored hashed.
	return ctx.JSON(http.StatusCreated, dto.CreateAPIKeyResponse{
		APIKey: rawKey,
		Info:   info,
	})
}

func (c *APIKeyController) List(ctx echo.Context) error {
	keys, err := c.keyService.List(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.ListAPIKeysResponse{Keys: keys})
}

func (c *APIKeyController) Get(ctx echo.Context) error {
	id, err := parseKeyID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid key id"})
	}

	info, err := c.keyService.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAPIKeyNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "api key not found"})
		}
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, info)
}

func (c *APIKeyController) Update(ctx echo.Context) error {
	id, err := parseKeyID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid key id"})
	}

	var req dto.UpdateAPIKeyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if !req.HasUpdates() {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no fields to update"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	info, err := c.keyService.Update(ctx.Request().Context(), id, service.UpdateAPIKeyParams{
		Name:               req.Name,
		Description:        req.Description,
		IsActive:           req.IsActive,
		RateLimitPerMinute: req.RateLimitPerMinute,
		Permissions:        req.Permissions,
	})
	if err != nil {
		if errors.Is(err, service.ErrAPIKeyNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "api key not found"})
		}
		if errors.Is(err, service.ErrAPIKeyNoUpdates) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no fields to update"})
		}
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, info)
}

func (c *APIKeyController) Delete(ctx echo.Context) error {
	id, err := parseKeyID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid key id"})
	}

	if err := c.keyService.Delete(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, service.ErrAPIKeyNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "api key not found"})
		}
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.RevokeAPIKeyResponse{
		Success: true,
		Message: "API key revoked successfully",
	})
}

func parseKeyID(ctx echo.Context) (int64, error) {
	return strconv.ParseInt(ctx.Param("id"), 10, 64)
}
