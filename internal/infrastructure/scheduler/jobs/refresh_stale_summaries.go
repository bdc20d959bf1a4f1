// Package jobs contains implementations of scheduled jobs for Edulight.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH STALE SUMMARIES JOB
// ══════════════════════════════════════════════════════════════════════════════

// RefreshStaleSummariesJob recomputes summaries whose stored lesson count
// has drifted from the live number of published lessons. Publishing or
// unpublishing a lesson makes every summary of that course stale at once,
// this sweep brings them back without waiting for each student to open
// their dashboard.
type RefreshStaleSummariesJob struct {
	// Dependencies
	summaryRepo    progress.SummaryRepository
	aggregator     *progress.Aggregator
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	// Configuration
	config RefreshStaleSummariesConfig

	// State
	lastRunStats atomic.Value // *RefreshStats
}

// RefreshStaleSummariesConfig contains configuration for the refresh job.
type RefreshStaleSummariesConfig struct {
	// BatchSize is the maximum number of stale summaries per run.
	// Oldest recomputes go first, the rest waits for the next tick.
	BatchSize int

	// Concurrency is the number of summaries recomputed in parallel.
	Concurrency int

	// RetryAttempts is the number of attempts per summary. Version
	// conflicts under concurrent writes resolve on retry.
	RetryAttempts int

	// Timeout is the maximum duration for the whole sweep.
	Timeout time.Duration
}

// DefaultRefreshStaleSummariesConfig returns sensible defaults.
func DefaultRefreshStaleSummariesConfig() RefreshStaleSummariesConfig {
	return RefreshStaleSummariesConfig{
		BatchSize:     200,
		Concurrency:   5,
		RetryAttempts: 3,
		Timeout:       2 * time.Minute,
	}
}

// RefreshStats contains statistics from a refresh run.
type RefreshStats struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Checked     int
	Recomputed  int
	Failed      int
	Errors      []RefreshError
}

// RefreshError describes a single failed recompute.
type RefreshError struct {
	StudentID  string
	CourseID   string
	Error      error
	OccurredAt time.Time
}

// NewRefreshStaleSummariesJob creates a new refresh job.
func NewRefreshStaleSummariesJob(
	summaryRepo progress.SummaryRepository,
	aggregator *progress.Aggregator,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config RefreshStaleSummariesConfig,
) *RefreshStaleSummariesJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 200
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 5
	}

	return &RefreshStaleSummariesJob{
		summaryRepo:    summaryRepo,
		aggregator:     aggregator,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *RefreshStaleSummariesJob) Name() string {
	return "refresh_stale_summaries"
}

// Description returns a human-readable description.
func (j *RefreshStaleSummariesJob) Description() string {
	return "Recomputes progress summaries that drifted from the published lesson set"
}

// Run executes the refresh job.
func (j *RefreshStaleSummariesJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RefreshStats{
		RunID:     uuid.New().String(),
		StartedAt: startedAt,
		Errors:    make([]RefreshError, 0),
	}

	j.logger.Info("starting refresh_stale_summaries job", "run_id", stats.RunID)

	// Apply timeout
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	stale, err := j.summaryRepo.FindStale(ctx, j.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to find stale summaries: %w", err)
	}

	stats.Checked = len(stale)
	if len(stale) == 0 {
		j.finalize(stats)
		return nil
	}

	j.logger.Info("found stale summaries", "count", len(stale))

	j.recomputeConcurrently(ctx, stale, stats)

	j.finalize(stats)
	j.emitRefreshedEvent(stats)

	j.logger.Info("refresh_stale_summaries job completed",
		"run_id", stats.RunID,
		"duration", stats.Duration.String(),
		"checked", stats.Checked,
		"recomputed", stats.Recomputed,
		"failed", stats.Failed,
	)

	if stats.Failed > 0 {
		return fmt.Errorf("refresh completed with %d failures", stats.Failed)
	}

	return nil
}

// recomputeConcurrently recomputes summaries using a worker pool.
func (j *RefreshStaleSummariesJob) recomputeConcurrently(
	ctx context.Context,
	stale []*progress.CourseProgressSummary,
	stats *RefreshStats,
) {
	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, j.config.Concurrency)
		mu        sync.Mutex
	)

	for _, summary := range stale {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(s *progress.CourseProgressSummary) {
			defer wg.Done()
			defer func() { <-semaphore }()

			err := j.recomputeOne(ctx, s.StudentID, s.CourseID)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				stats.Failed++
				stats.Errors = append(stats.Errors, RefreshError{
					StudentID:  s.StudentID,
					CourseID:   s.CourseID,
					Error:      err,
					OccurredAt: time.Now(),
				})
				j.logger.Error("failed to refresh summary",
					"student_id", s.StudentID,
					"course_id", s.CourseID,
					"error", err,
				)
			} else {
				stats.Recomputed++
			}
		}(summary)
	}

	wg.Wait()
}

// recomputeOne recomputes a single summary with retries. The aggregator
// already retries version conflicts internally, the outer retry covers
// transient database errors between ticks of the sweep.
func (j *RefreshStaleSummariesJob) recomputeOne(ctx context.Context, studentID, courseID string) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		_, err := j.aggregator.Recompute(ctx, studentID, courseID)
		if err != nil {
			if shared.IsNotFound(err) {
				// Course or student vanished since FindStale, nothing to refresh.
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	}, retry.WithMaxAttempts(j.config.RetryAttempts))
}

// finalize closes out the stats and stores them for inspection.
func (j *RefreshStaleSummariesJob) finalize(stats *RefreshStats) {
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastRunStats.Store(stats)
}

// emitRefreshedEvent publishes the sweep result for observers.
func (j *RefreshStaleSummariesJob) emitRefreshedEvent(stats *RefreshStats) {
	if j.eventPublisher == nil {
		return
	}

	event := shared.NewSummariesRefreshedEvent(
		stats.RunID,
		stats.Checked,
		stats.Recomputed,
		stats.Failed,
		stats.Duration,
	)
	if err := j.eventPublisher.Publish(event); err != nil {
		j.logger.Warn("failed to publish summaries refreshed event",
			"run_id", stats.RunID,
			"error", err,
		)
	}
}

// LastRunStats returns statistics from the last run.
func (j *RefreshStaleSummariesJob) LastRunStats() *RefreshStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RefreshStats)
}
