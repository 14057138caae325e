package controller

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	dto "github.com/depin-orcha/orcha/app/dto/http"

	"github.com/labstack/echo/v4"
)

// ServiceVersion is reported by the health and status endpoints.
const ServiceVersion = "0.1.0"

const defaultPredictionHours = 24

// EngineController serves the health surface and the prediction and
// allocation endpoints. The engine endpoints respond with placeholder
// payloads until the underlying models ship.
type EngineController struct {
	db *sql.DB
}

func NewEngineController(db *sql.DB) *EngineController {
	return &EngineController{db: db}
}

func (c *EngineController) Health(ctx echo.Context) error {
	components := map[string]string{
		"database": "healthy",
		"models":   "not_loaded",
		"cache":    "not_configured",
	}

	status := "healthy"
	if err := c.db.PingContext(ctx.Request().Context()); err != nil {
		components["database"] = "unhealthy"
		status = "degraded"
	}

	return ctx.JSON(http.StatusOK, dto.HealthResponse{
		Status:     status,
		Version:    ServiceVersion,
		Components: components,
	})
}

func (c *EngineController) Status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, dto.StatusResponse{
		Service:   "depin-orcha",
		Version:   ServiceVersion,
		Timestamp: time.Now().UTC(),
	})
}

func (c *EngineController) Metrics(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, dto.MetricsResponse{
		Message: "Metrics not yet implemented",
	})
}

func (c *EngineController) PredictEarnings(ctx echo.Context) error {
	protocol := ctx.Param("protocol")
	if protocol == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "protocol is required"})
	}

	hours := defaultPredictionHours
	if raw := ctx.QueryParam("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "hours must be a positive integer"})
		}
		hours = parsed
	}

	return ctx.JSON(http.StatusOK, dto.PredictEarningsResponse{
		Message:  fmt.Sprintf("Predictions for %s not yet implemented", protocol),
		Protocol: protocol,
		Hours:    hours,
	})
}

func (c *EngineController) OptimizeAllocation(ctx echo.Context) error {
	var req dto.OptimizeAllocationRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	return ctx.JSON(http.StatusOK, dto.OptimizeAllocationResponse{
		Message:   "Allocation optimization not yet implemented",
		Protocols: req.Protocols,
	})
}
