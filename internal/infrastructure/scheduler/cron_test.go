package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSchedule_EveryFifteenMinutes(t *testing.T) {
	s, err := NewCronSchedule("*/15 * * * *", time.UTC)
	require.NoError(t, err)

	at := time.Date(2025, time.March, 10, 12, 7, 42, 0, time.UTC)
	next := s.Next(at)

	assert.Equal(t, time.Date(2025, time.March, 10, 12, 15, 0, 0, time.UTC), next)
}

func TestCronSchedule_DailyAtThree(t *testing.T) {
	s, err := NewCronSchedule("0 3 * * *", time.UTC)
	require.NoError(t, err)

	// После 03:00 следующий запуск - завтра.
	at := time.Date(2025, time.March, 10, 3, 0, 0, 0, time.UTC)
	next := s.Next(at)

	assert.Equal(t, time.Date(2025, time.March, 11, 3, 0, 0, 0, time.UTC), next)
}

func TestCronSchedule_WeekdayFilter(t *testing.T) {
	// Понедельник, 06:00.
	s, err := NewCronSchedule("0 6 * * 1", time.UTC)
	require.NoError(t, err)

	// 2025-03-10 - понедельник; в 07:00 ближайший запуск через неделю.
	at := time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)
	next := s.Next(at)

	assert.Equal(t, time.Date(2025, time.March, 17, 6, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestCronSchedule_ListAndRange(t *testing.T) {
	s, err := NewCronSchedule("0 9-11,14 * * *", time.UTC)
	require.NoError(t, err)

	at := time.Date(2025, time.March, 10, 11, 30, 0, 0, time.UTC)
	next := s.Next(at)

	assert.Equal(t, time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC), next)
}

func TestCronSchedule_HonorsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	s, err := NewCronSchedule("30 8 * * *", loc)
	require.NoError(t, err)

	at := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC) // 08:00 в Нью-Йорке
	next := s.Next(at)

	assert.Equal(t, time.Date(2025, time.June, 2, 8, 30, 0, 0, loc).UTC(), next.UTC())
}

func TestCronSchedule_RejectsMalformedExpressions(t *testing.T) {
	cases := []string{
		"* * * *",     // четыре поля
		"61 * * * *",  // минута вне диапазона
		"* 24 * * *",  // час вне диапазона
		"*/0 * * * *", // нулевой шаг
		"5-1 * * * *", // перевёрнутый диапазон
		"* * * * mon", // имена не поддерживаются
	}
	for _, expr := range cases {
		_, err := NewCronSchedule(expr, time.UTC)
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestCronSchedule_NilLocationDefaultsToUTC(t *testing.T) {
	s, err := NewCronSchedule("0 0 1 * *", nil)
	require.NoError(t, err)
	assert.Equal(t, "cron(0 0 1 * *) UTC", s.String())

	at := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	next := s.Next(at)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), next)
}
