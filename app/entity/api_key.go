package entity

import "time"

type APIKey struct {
	ID                 int64
	KeyHash            string
	Name               string
	Description        *string
	CreatedAt          time.Time
	ExpiresAt          *time.Time
	LastUsedAt         *time.Time
	IsActive           bool
	RateLimitPerMinute int
	Permissions        []string
}

// Expired reports whether the key has an expiry in the past.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
