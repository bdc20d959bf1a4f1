package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/edulight/edulight-backend/internal/domain/enrollment"
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTE ALL PROGRESS JOB
// ══════════════════════════════════════════════════════════════════════════════

// RecomputeAllProgressJob walks every enrollment and recomputes its
// summary from the completion ledger. The staleness sweep only catches
// summaries whose lesson count drifted; this nightly reconciliation also
// repairs summaries corrupted by partial failures or manual data fixes.
type RecomputeAllProgressJob struct {
	// Dependencies
	enrollmentRepo enrollment.Repository
	aggregator     *progress.Aggregator
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	// Configuration
	config RecomputeAllProgressConfig

	// State
	lastRunStats atomic.Value // *RecomputeStats
}

// RecomputeAllProgressConfig contains configuration for the nightly job.
type RecomputeAllProgressConfig struct {
	// Concurrency is the number of summaries recomputed in parallel.
	// Kept low: the job runs against the live database at night, but
	// "night" is relative in a platform with students across timezones.
	Concurrency int

	// PauseBetween is an optional pause between recomputes to spread
	// the load.
	PauseBetween time.Duration

	// Timeout is the maximum duration for the whole run.
	Timeout time.Duration
}

// DefaultRecomputeAllProgressConfig returns sensible defaults.
func DefaultRecomputeAllProgressConfig() RecomputeAllProgressConfig {
	return RecomputeAllProgressConfig{
		Concurrency:  3,
		PauseBetween: 10 * time.Millisecond,
		Timeout:      30 * time.Minute,
	}
}

// RecomputeStats contains statistics from a full recompute run.
type RecomputeStats struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Enrollments int
	Recomputed  int
	Failed      int
}

// NewRecomputeAllProgressJob creates a new nightly recompute job.
func NewRecomputeAllProgressJob(
	enrollmentRepo enrollment.Repository,
	aggregator *progress.Aggregator,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config RecomputeAllProgressConfig,
) *RecomputeAllProgressJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}

	return &RecomputeAllProgressJob{
		enrollmentRepo: enrollmentRepo,
		aggregator:     aggregator,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *RecomputeAllProgressJob) Name() string {
	return "recompute_all_progress"
}

// Description returns a human-readable description.
func (j *RecomputeAllProgressJob) Description() string {
	return "Recomputes every enrollment's progress summary from the completion ledger"
}

// Run executes the nightly recompute.
func (j *RecomputeAllProgressJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RecomputeStats{
		RunID:     uuid.New().String(),
		StartedAt: startedAt,
	}

	j.logger.Info("starting recompute_all_progress job",
		"run_id", stats.RunID,
		"run_date", timeutil.FormatDateStr(startedAt),
	)

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	enrollments, err := j.enrollmentRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enrollments: %w", err)
	}

	stats.Enrollments = len(enrollments)
	j.logger.Info("found enrollments to recompute", "count", stats.Enrollments)

	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, j.config.Concurrency)
		mu        sync.Mutex
	)

	for _, enr := range enrollments {
		select {
		case <-ctx.Done():
			j.logger.Warn("recompute interrupted",
				"run_id", stats.RunID,
				"processed", stats.Recomputed+stats.Failed,
			)
			wg.Wait()
			j.finalize(stats)
			return ctx.Err()
		default:
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(e *enrollment.Enrollment) {
			defer wg.Done()
			defer func() { <-semaphore }()

			_, err := j.aggregator.Recompute(ctx, e.StudentID, e.CourseID)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				stats.Failed++
				j.logger.Error("failed to recompute summary",
					"student_id", e.StudentID,
					"course_id", e.CourseID,
					"error", err,
				)
			} else {
				stats.Recomputed++
			}
		}(enr)

		if j.config.PauseBetween > 0 {
			time.Sleep(j.config.PauseBetween)
		}
	}

	wg.Wait()
	j.finalize(stats)
	j.emitRefreshedEvent(stats)

	j.logger.Info("recompute_all_progress job completed",
		"run_id", stats.RunID,
		"duration", stats.Duration.String(),
		"enrollments", stats.Enrollments,
		"recomputed", stats.Recomputed,
		"failed", stats.Failed,
	)

	if stats.Failed > 0 {
		return fmt.Errorf("recompute completed with %d failures", stats.Failed)
	}

	return nil
}

// finalize closes out the stats and stores them for inspection.
func (j *RecomputeAllProgressJob) finalize(stats *RecomputeStats) {
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastRunStats.Store(stats)
}

// emitRefreshedEvent publishes the run result for observers.
func (j *RecomputeAllProgressJob) emitRefreshedEvent(stats *RecomputeStats) {
	if j.eventPublisher == nil {
		return
	}

	event := shared.NewSummariesRefreshedEvent(
		stats.RunID,
		stats.Enrollments,
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
func (j *RecomputeAllProgressJob) LastRunStats() *RecomputeStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RecomputeStats)
}
