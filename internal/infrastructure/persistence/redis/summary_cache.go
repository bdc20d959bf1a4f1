package redis

import (
	"context"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/progress"
)

// SummaryCache implements progress.SummaryCache on top of the generic Cache.
// Each (student, course) pair gets its own key so single summaries can be
// invalidated without touching the rest of the dashboard.
type SummaryCache struct {
	cache *Cache
}

// NewSummaryCache creates a new SummaryCache.
func NewSummaryCache(cache *Cache) *SummaryCache {
	return &SummaryCache{
		cache: cache,
	}
}

// Get returns the cached summary for a (student, course) pair.
// Returns ErrCacheMiss when nothing is cached; callers fall back to Postgres.
func (s *SummaryCache) Get(ctx context.Context, studentID, courseID string) (*progress.CourseProgressSummary, error) {
	var summary progress.CourseProgressSummary
	key := SummaryKey(studentID, courseID)
	if err := s.cache.Get(ctx, key, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Set stores a summary under its (student, course) key.
func (s *SummaryCache) Set(ctx context.Context, summary *progress.CourseProgressSummary, ttl time.Duration) error {
	if summary == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = TTLSummaryCache
	}
	key := SummaryKey(summary.StudentID, summary.CourseID)
	return s.cache.Set(ctx, key, summary, ttl)
}

// Delete removes a single summary from the cache.
func (s *SummaryCache) Delete(ctx context.Context, studentID, courseID string) error {
	return s.cache.Delete(ctx, SummaryKey(studentID, courseID))
}

// DeleteByCourse removes the summaries of every student on a course.
// Used when the published lesson set of a course changes.
func (s *SummaryCache) DeleteByCourse(ctx context.Context, courseID string) error {
	return s.cache.DeleteByPattern(ctx, SummaryCoursePattern(courseID))
}
