package http

import "errors"

type CreateAPIKeyRequest struct {
	Name               string   `json:"name"`
	Description        *string  `json:"description,omitempty"`
	ExpiresInDays      *int64   `json:"expires_in_days,omitempty"`
	RateLimitPerMinute *int     `json:"rate_limit_per_minute,omitempty"`
	Permissions        []string `json:"permissions,omitempty"`
}

func (r *CreateAPIKeyRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.ExpiresInDays != nil && *r.ExpiresInDays <= 0 {
		return errors.New("expires_in_days must be greater than 0")
	}
	if r.RateLimitPerMinute != nil && *r.RateLimitPerMinute <= 0 {
		return errors.New("rate_limit_per_minute must be greater than 0")
	}
	return nil
}

type UpdateAPIKeyRequest struct {
	Name               *string   `json:"name,omitempty"`
	Description        *string   `json:"description,omitempty"`
	IsActive           *bool     `json:"is_active,omitempty"`
	RateLimitPerMinute *int      `json:"rate_limit_per_minute,omitempty"`
	Permissions        *[]string `json:"permissions,omitempty"`
}

func (r *UpdateAPIKeyRequest) HasUpdates() bool {
	return r.Name != nil || r.Description != nil || r.IsActive != nil ||
		r.RateLimitPerMinute != nil || r.Permissions != nil
}

func (r *UpdateAPIKeyRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return errors.New("name must not be empty")
	}
	if r.RateLimitPerMinute != nil && *r.RateLimitPerMinute <= 0 {
		return errors.New("rate_limit_per_minute must be greater than 0")
	}
	return nil
}

type OptimizeAllocationRequest struct {
	Protocols []string `json:"protocols"`
}

func (r *OptimizeAllocationRequest) Validate() error {
	if len(r.Protocols) == 0 {
		return errors.New("protocols list is required")
	}
	for _, protocol := range r.Protocols {
		if protocol == "" {
			return errors.New("protocol names must not be empty")
		}
	}
	return nil
}
