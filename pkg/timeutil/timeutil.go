// Package timeutil provides timezone-aware date helpers.
// Scheduled jobs and progress reports reason about calendar days in the
// platform timezone, which is configurable per deployment (default UTC).
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"sync/atomic"
	"time"
)

// platformLocation holds the deployment timezone. Stored atomically so
// SetLocation can be called once at startup without racing readers.
var platformLocation atomic.Pointer[time.Location]

func init() {
	platformLocation.Store(time.UTC)
}

// SetLocation sets the platform timezone. Call once during startup.
func SetLocation(loc *time.Location) {
	if loc != nil {
		platformLocation.Store(loc)
	}
}

// Location returns the configured platform timezone.
func Location() *time.Location {
	return platformLocation.Load()
}

// Now returns the current time in the platform timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// ToPlatform converts a time to the platform timezone.
func ToPlatform(t time.Time) time.Time {
	return t.In(Location())
}

// Date creates a time in the platform timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Location())
}

// DateTime creates a time in the platform timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, Location())
}

// StartOfDay returns the start of the day (00:00:00) in the platform timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToPlatform(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the platform timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToPlatform(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, Location())
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in the platform timezone.
func StartOfWeek(t time.Time) time.Time {
	local := ToPlatform(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract))
}

// EndOfWeek returns the end of the week (Sunday 23:59:59) in the platform timezone.
func EndOfWeek(t time.Time) time.Time {
	start := StartOfWeek(t)
	return EndOfDay(start.AddDate(0, 0, 6))
}

// StartOfMonth returns the start of the month in the platform timezone.
func StartOfMonth(t time.Time) time.Time {
	local := ToPlatform(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, Location())
}

// EndOfMonth returns the end of the month in the platform timezone.
func EndOfMonth(t time.Time) time.Time {
	start := StartOfMonth(t)
	return EndOfDay(start.AddDate(0, 1, -1))
}

// IsToday checks if the given time is today in the platform timezone.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsSameDay checks if two times are on the same day in the platform timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToPlatform(t1), ToPlatform(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// DaysSince calculates the number of days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	duration := now.Sub(then)
	return int(duration.Hours() / 24)
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	duration := a2.Sub(a1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// IsWeekend checks if the given time is on a weekend.
func IsWeekend(t time.Time) bool {
	local := ToPlatform(t)
	weekday := local.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// Format formats a time in the platform timezone with the given layout.
func Format(t time.Time, layout string) string {
	return ToPlatform(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in the platform timezone.
func FormatDateStr(t time.Time) string {
	return Format(t, FormatDate)
}

// FormatDateTimeStr formats a time as datetime string in the platform timezone.
func FormatDateTimeStr(t time.Time) string {
	return Format(t, FormatDateTime)
}

// FormatRelative returns a human-readable relative time string.
// Used in instructor-facing views for "last activity" columns.
func FormatRelative(t time.Time) string {
	now := Now()
	local := ToPlatform(t)
	duration := now.Sub(local)

	if duration < 0 {
		duration = -duration
		return formatFutureDuration(duration)
	}

	return formatPastDuration(duration)
}

func formatPastDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("%dh ago", hours)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%dd ago", days)
	case d < 30*24*time.Hour:
		weeks := int(d.Hours() / 24 / 7)
		return fmt.Sprintf("%dw ago", weeks)
	default:
		months := int(d.Hours() / 24 / 30)
		if months < 12 {
			return fmt.Sprintf("%dmo ago", months)
		}
		years := months / 12
		return fmt.Sprintf("%dy ago", years)
	}
}

func formatFutureDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("in %dm", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("in %dh", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "tomorrow"
		}
		return fmt.Sprintf("in %dd", days)
	}
}

// Parse parses a time string in the platform timezone.
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, Location())
}

// ParseDate parses a date string (YYYY-MM-DD) in the platform timezone.
func ParseDate(value string) (time.Time, error) {
	return Parse(FormatDate, value)
}
