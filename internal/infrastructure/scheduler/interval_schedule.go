package scheduler

import (
	"fmt"
	"math/rand"
	"time"
)

// IntervalSchedule schedules a job to run at a fixed interval.
// Ненулевой Jitter размазывает запуски, чтобы несколько
// worker-инстансов не обновляли одни и те же сводки одновременно.
type IntervalSchedule struct {
	Interval time.Duration
	Jitter   time.Duration
}

// NewIntervalSchedule creates a schedule firing every interval.
// Intervals below a second are clamped to a second.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	if interval < time.Second {
		interval = time.Second
	}
	return &IntervalSchedule{Interval: interval}
}

// WithJitter returns a copy of the schedule with random jitter added
// to every interval.
func (s *IntervalSchedule) WithJitter(jitter time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: s.Interval, Jitter: jitter}
}

// Next returns the next scheduled time after t.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	next := t.Add(s.Interval)
	if s.Jitter > 0 {
		next = next.Add(time.Duration(rand.Int63n(int64(s.Jitter))))
	}
	return next
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	if s.Jitter > 0 {
		return fmt.Sprintf("@every %s ±%s", s.Interval.String(), s.Jitter.String())
	}
	return fmt.Sprintf("@every %s", s.Interval.String())
}
