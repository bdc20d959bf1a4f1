// Package service contains thin adapters between infrastructure components
// and the interfaces the domain layer expects.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/infrastructure/persistence/redis"
	"github.com/edulight/edulight-backend/pkg/circuitbreaker"
)

// GuardedSummaryCache wraps a summary cache with a circuit breaker.
// A flapping Redis instance would otherwise add a connect timeout to
// every dashboard read; with the breaker open, reads skip the cache
// and go straight to Postgres.
type GuardedSummaryCache struct {
	inner   progress.SummaryCache
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedSummaryCache creates a guarded cache around inner.
func NewGuardedSummaryCache(inner progress.SummaryCache, logger *slog.Logger) *GuardedSummaryCache {
	if logger == nil {
		logger = slog.Default()
	}

	breaker := circuitbreaker.RedisBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("summary cache breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &GuardedSummaryCache{
		inner:   inner,
		breaker: breaker,
	}
}

// Get fetches a summary through the breaker. Cache misses do not count
// as failures, only transport errors trip the breaker.
func (g *GuardedSummaryCache) Get(ctx context.Context, studentID, courseID string) (*progress.CourseProgressSummary, error) {
	var (
		summary *progress.CourseProgressSummary
		miss    bool
	)
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		summary, innerErr = g.inner.Get(ctx, studentID, courseID)
		if errors.Is(innerErr, redis.ErrCacheMiss) {
			miss = true
			return nil
		}
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	if miss {
		return nil, redis.ErrCacheMiss
	}
	return summary, nil
}

// Set stores a summary through the breaker.
func (g *GuardedSummaryCache) Set(ctx context.Context, summary *progress.CourseProgressSummary, ttl time.Duration) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Set(ctx, summary, ttl)
	})
}

// Delete removes a summary through the breaker.
func (g *GuardedSummaryCache) Delete(ctx context.Context, studentID, courseID string) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Delete(ctx, studentID, courseID)
	})
}

// DeleteByCourse removes a course's summaries through the breaker.
func (g *GuardedSummaryCache) DeleteByCourse(ctx context.Context, courseID string) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.DeleteByCourse(ctx, courseID)
	})
}

// Breaker exposes the underlying breaker for health reporting.
func (g *GuardedSummaryCache) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}
