package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type RateLimitRepository interface {
	CountSince(ctx context.Context, apiKeyID int64, since time.Time) (int64, error)
	Record(ctx context.Context, apiKeyID int64, endpoint string, windowStart time.Time) error
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type RateLimitService interface {
	// Check enforces the key's per-window request limit and records the
	// request when it is allowed.
	Check(ctx context.Context, apiKeyID int64, endpoint string, limit int) error
	Window() time.Duration
	// StartCleanup periodically purges log rows older than retention
	// until ctx is cancelled.
	StartCleanup(ctx context.Context, interval, retention time.Duration)
}

type rateLimitService struct {
	repo   RateLimitRepository
	window time.Duration
}

func NewRateLimitService(repo RateLimitRepository, window time.Duration) RateLimitService {
	return &rateLimitService{repo: repo, window: window}
}

func (s *rateLimitService) Check(ctx context.Context, apiKeyID int64, endpoint string, limit int) error {
	now := time.Now().UTC()

	count, err := s.repo.CountSince(ctx, apiKeyID, now.Add(-s.window))
	if err != nil {
		return err
	}
	if count >= int64(limit) {
		return ErrRateLimitExceeded
	}

	// Recording is best effort; losing a log row must not fail the request.
	// Timestamps are bucketed to the window start so repeated requests
	// aggregate into one row per key, endpoint, and window.
	if err := s.repo.Record(ctx, apiKeyID, endpoint, now.Truncate(s.window)); err != nil {
		logrus.WithError(err).Warn("Failed to record rate limit entry")
	}

	return nil
}

func (s *rateLimitService) Window() time.Duration {
	return s.window
}

func (s *rateLimitService) StartCleanup(ctx context.Context, interval, retention time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				purged, err := s.repo.PurgeBefore(ctx, cutoff)
				if err != nil {
					logrus.WithError(err).Warn("Failed to purge rate limit log")
					continue
				}
				if purged > 0 {
					logrus.WithField("purged", purged).Info("Purged old rate limit log rows")
				}
			}
		}
	}()
}
