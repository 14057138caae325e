package dto

import (
	"time"

	"github.com/depin-orcha/orcha/app/entity"
)

// APIKeyInfo is the externally visible view of an API key. It never
// carries the key hash or the raw secret.
type APIKeyInfo struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Description        *string    `json:"description,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
	IsActive           bool       `json:"is_active"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	Permissions        []string   `json:"permissions"`
}

func NewAPIKeyInfo(key *entity.APIKey) *APIKeyInfo {
	permissions := key.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	return &APIKeyInfo{
		ID:                 key.ID,
		Name:               key.Name,
		Description:        key.Description,
		CreatedAt:          key.CreatedAt,
		ExpiresAt:          key.ExpiresAt,
		LastUsedAt:         key.LastUsedAt,
		IsActive:           key.IsActive,
		RateLimitPerMinute: key.RateLimitPerMinute,
		Permissions:        permissions,
	}
}
