package http

import (
	"time"

	"github.com/depin-orcha/orcha/app/dto"
)

type CreateAPIKeyResponse struct {
	APIKey string          `json:"api_key"`
	Info   *dto.APIKeyInfo `json:"info"`
}

type ListAPIKeysResponse struct {
	Keys []*dto.APIKeyInfo `json:"keys"`
}

type RevokeAPIKeyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

type StatusResponse struct {
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type MetricsResponse struct {
	Message string `json:"message"`
}

type PredictEarningsResponse struct {
	Message  string `json:"message"`
	Protocol string `json:"protocol"`
	Hours    int    `json:"hours"`
}

type OptimizeAllocationResponse struct {
	Message   string   `json:"message"`
	Protocols []string `json:"protocols"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}
