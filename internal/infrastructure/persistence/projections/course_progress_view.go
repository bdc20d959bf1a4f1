// Package projections implements read models for CQRS pattern.
// Projections are denormalized views optimized for fast reads.
// They are updated asynchronously when domain events occur.
//
// The course progress view keeps per-course summaries in memory so that
// instructor dashboards can be served without hitting Postgres on every
// request. Postgres stays the source of truth: the view is rebuilt from
// the summary repository and patched incrementally from progress events.
package projections

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE PROGRESS VIEW - Denormalized Read Model
// ══════════════════════════════════════════════════════════════════════════════

// CourseProgressView holds progress summaries grouped by course.
// All reads return copies, entries inside the view are never shared
// with callers.
type CourseProgressView struct {
	mu sync.RWMutex

	// byCourse maps course ID to the summaries of its students,
	// indexed by student ID.
	byCourse map[string]map[string]*progress.CourseProgressSummary

	// lastUpdated is the timestamp of the last mutation.
	lastUpdated time.Time

	// version is incremented on each mutation for cache invalidation.
	version int64
}

// NewCourseProgressView creates a new empty view.
func NewCourseProgressView() *CourseProgressView {
	return &CourseProgressView{
		byCourse:    make(map[string]map[string]*progress.CourseProgressSummary),
		lastUpdated: time.Now().UTC(),
		version:     1,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// RebuildCourse replaces the view of a single course with the given
// summaries. Called on startup and after bulk recomputes.
func (v *CourseProgressView) RebuildCourse(courseID string, summaries []*progress.CourseProgressSummary) error {
	if courseID == "" {
		return fmt.Errorf("projections: course id cannot be empty")
	}

	students := make(map[string]*progress.CourseProgressSummary, len(summaries))
	for _, summary := range summaries {
		if summary == nil || summary.StudentID == "" {
			continue
		}
		students[summary.StudentID] = summary.Clone()
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.byCourse[courseID] = students
	v.touch()

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// INCREMENTAL UPDATE OPERATIONS (Called on domain events)
// ══════════════════════════════════════════════════════════════════════════════

// Upsert inserts or replaces a single summary.
// Called when a summary has been recomputed.
func (v *CourseProgressView) Upsert(summary *progress.CourseProgressSummary) error {
	if summary == nil {
		return fmt.Errorf("projections: cannot upsert nil summary")
	}
	if summary.StudentID == "" || summary.CourseID == "" {
		return fmt.Errorf("projections: summary must carry student and course ids")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	students, ok := v.byCourse[summary.CourseID]
	if !ok {
		students = make(map[string]*progress.CourseProgressSummary)
		v.byCourse[summary.CourseID] = students
	}
	students[summary.StudentID] = summary.Clone()
	v.touch()

	return nil
}

// Remove drops the summary of a single (student, course) pair.
// Called when a summary is invalidated; the entry reappears after the
// next recompute.
func (v *CourseProgressView) Remove(studentID, courseID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if students, ok := v.byCourse[courseID]; ok {
		delete(students, studentID)
		v.touch()
	}
}

// RemoveCourse drops every summary of a course.
// Called when the published lesson set of a course changes.
func (v *CourseProgressView) RemoveCourse(courseID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.byCourse[courseID]; ok {
		delete(v.byCourse, courseID)
		v.touch()
	}
}

// touch bumps version and lastUpdated. Caller must hold the write lock.
func (v *CourseProgressView) touch() {
	v.lastUpdated = time.Now().UTC()
	v.version++
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY OPERATIONS (Fast reads from denormalized data)
// ══════════════════════════════════════════════════════════════════════════════

// GetByCourse returns the summaries of every student on a course,
// sorted by progress percentage descending. An unknown course yields
// an empty slice, callers fall back to the repository.
func (v *CourseProgressView) GetByCourse(ctx context.Context, courseID string) ([]*progress.CourseProgressSummary, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	students := v.byCourse[courseID]
	result := make([]*progress.CourseProgressSummary, 0, len(students))
	for _, summary := range students {
		result = append(result, summary.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ProgressPercentage != result[j].ProgressPercentage {
			return result[i].ProgressPercentage > result[j].ProgressPercentage
		}
		return result[i].StudentID < result[j].StudentID
	})

	return result, nil
}

// Get returns the summary of a single (student, course) pair.
func (v *CourseProgressView) Get(ctx context.Context, studentID, courseID string) (*progress.CourseProgressSummary, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if students, ok := v.byCourse[courseID]; ok {
		if summary, ok := students[studentID]; ok {
			return summary.Clone(), nil
		}
	}

	return nil, progress.ErrSummaryNotFound
}

// CourseStats returns aggregate numbers for a course without copying
// every entry.
func (v *CourseProgressView) CourseStats(ctx context.Context, courseID string) CourseViewStats {
	v.mu.RLock()
	defer v.mu.RUnlock()

	stats := CourseViewStats{CourseID: courseID}
	students := v.byCourse[courseID]
	if len(students) == 0 {
		return stats
	}

	total := 0.0
	for _, summary := range students {
		stats.Students++
		total += summary.ProgressPercentage
		if summary.TotalLessons > 0 && summary.LessonsCompleted >= summary.TotalLessons {
			stats.Completed++
		}
	}
	stats.AveragePercentage = total / float64(stats.Students)

	return stats
}

// GetVersion returns the current version number.
func (v *CourseProgressView) GetVersion() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// GetLastUpdated returns when the view was last updated.
func (v *CourseProgressView) GetLastUpdated() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastUpdated
}

// ══════════════════════════════════════════════════════════════════════════════
// SUPPORTING TYPES
// ══════════════════════════════════════════════════════════════════════════════

// CourseViewStats holds aggregate numbers for one course.
type CourseViewStats struct {
	CourseID          string  `json:"course_id"`
	Students          int     `json:"students"`
	Completed         int     `json:"completed"`
	AveragePercentage float64 `json:"average_percentage"`
}
