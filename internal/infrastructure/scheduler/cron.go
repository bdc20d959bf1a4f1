package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRON-РАСПИСАНИЕ
// ══════════════════════════════════════════════════════════════════════════════

// CronSchedule реализует Schedule поверх стандартного 5-польного
// cron-выражения: минута час день-месяца месяц день-недели.
// Поддерживаются *, */n, n, n-m и списки n,m,o.
//
// Примеры:
//   - "*/15 * * * *" - каждые 15 минут
//   - "0 3 * * *"    - каждый день в 03:00
//   - "0 6 * * 1"    - каждый понедельник в 06:00
type CronSchedule struct {
	raw      string
	minutes  uint64 // биты 0-59
	hours    uint64 // биты 0-23
	days     uint64 // биты 1-31
	months   uint64 // биты 1-12
	weekdays uint64 // биты 0-6, 0 = воскресенье
	location *time.Location
}

// NewCronSchedule parses expr and returns a schedule evaluated in loc.
// A nil location means UTC.
func NewCronSchedule(expr string, loc *time.Location) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron %q: expected 5 fields, got %d", expr, len(fields))
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &CronSchedule{raw: expr, location: loc}

	specs := []struct {
		name     string
		field    string
		min, max int
		dst      *uint64
	}{
		{"minute", fields[0], 0, 59, &s.minutes},
		{"hour", fields[1], 0, 23, &s.hours},
		{"day", fields[2], 1, 31, &s.days},
		{"month", fields[3], 1, 12, &s.months},
		{"weekday", fields[4], 0, 6, &s.weekdays},
	}
	for _, spec := range specs {
		bits, err := parseCronField(spec.field, spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("cron %q: %s field: %w", expr, spec.name, err)
		}
		*spec.dst = bits
	}

	return s, nil
}

// MustCronSchedule is NewCronSchedule that panics on error.
// Только для констант, известных на этапе компиляции.
func MustCronSchedule(expr string, loc *time.Location) *CronSchedule {
	s, err := NewCronSchedule(expr, loc)
	if err != nil {
		panic(err)
	}
	return s
}

// parseCronField converts one cron field into a bitmask of allowed values.
func parseCronField(field string, min, max int) (uint64, error) {
	var bits uint64

	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)

		step := 1
		if i := strings.IndexByte(part, '/'); i >= 0 {
			v, err := strconv.Atoi(part[i+1:])
			if err != nil || v <= 0 {
				return 0, fmt.Errorf("invalid step %q", part)
			}
			step = v
			part = part[:i]
		}

		start, end := min, max
		switch {
		case part == "*":
			// полный диапазон
		case strings.Contains(part, "-"):
			lo, hi, ok := strings.Cut(part, "-")
			from, err1 := strconv.Atoi(lo)
			to, err2 := strconv.Atoi(hi)
			if !ok || err1 != nil || err2 != nil || from > to {
				return 0, fmt.Errorf("invalid range %q", part)
			}
			start, end = from, to
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", part)
			}
			start, end = v, v
			if step > 1 {
				// "n/step" means from n to the end of the range
				end = max
			}
		}

		if start < min || end > max {
			return 0, fmt.Errorf("value out of range [%d-%d] in %q", min, max, part)
		}
		for v := start; v <= end; v += step {
			bits |= 1 << uint(v)
		}
	}

	if bits == 0 {
		return 0, fmt.Errorf("empty field %q", field)
	}
	return bits, nil
}

// Next returns the first matching minute strictly after t.
func (s *CronSchedule) Next(t time.Time) time.Time {
	// Минутное разрешение, секунды отбрасываются.
	next := t.In(s.location).Truncate(time.Minute).Add(time.Minute)

	// Года достаточно для любого валидного выражения.
	limit := next.AddDate(1, 0, 1)
	for next.Before(limit) {
		if !s.monthMatches(next) {
			next = time.Date(next.Year(), next.Month(), 1, 0, 0, 0, 0, s.location).AddDate(0, 1, 0)
			continue
		}
		if !s.dayMatches(next) {
			next = time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, s.location).AddDate(0, 0, 1)
			continue
		}
		if s.minutes&(1<<uint(next.Minute())) == 0 || s.hours&(1<<uint(next.Hour())) == 0 {
			next = next.Add(time.Minute)
			continue
		}
		return next
	}

	return time.Time{}
}

func (s *CronSchedule) monthMatches(t time.Time) bool {
	return s.months&(1<<uint(t.Month())) != 0
}

func (s *CronSchedule) dayMatches(t time.Time) bool {
	return s.days&(1<<uint(t.Day())) != 0 &&
		s.weekdays&(1<<uint(t.Weekday())) != 0
}

// String returns the original expression with its timezone.
func (s *CronSchedule) String() string {
	return fmt.Sprintf("cron(%s) %s", s.raw, s.location.String())
}
