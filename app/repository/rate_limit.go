package repository

import (
	"context"
	"time"
)

type RateLimitRepository struct {
	db DBTX
}

func NewRateLimitRepository(db DBTX) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// CountSince sums the request counts recorded for a key across all
// endpoints since the start of the current window.
func (r *RateLimitRepository) CountSince(ctx context.Context, apiKeyID int64, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(request_count), 0)
		FROM rate_limit_log
		WHERE api_key_id = ? AND window_start >= ?
	`
	var count int64
	err := r.db.QueryRowContext(ctx, query, apiKeyID, since).Scan(&count)
	return count, err
}

// Record logs one request against the key and endpoint, bucketed by
// window_start.
func (r *RateLimitRepository) Record(ctx context.Context, apiKeyID int64, endpoint string, windowStart time.Time) error {
	query := `
		INSERT INTO rate_limit_log (api_key_id, endpoint, request_count, window_start)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(api_key_id, endpoint, window_start) DO UPDATE SET
			request_count = request_count + 1
	`
	_, err := r.db.ExecContext(ctx, query, apiKeyID, endpoint, windowStart)
	return err
}

// PurgeBefore deletes log rows older than the cutoff and returns the
// number of rows removed.
func (r *RateLimitRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM rate_limit_log WHERE window_start < ?`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
