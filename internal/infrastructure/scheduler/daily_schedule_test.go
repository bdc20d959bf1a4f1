package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySchedule_NextSameDay(t *testing.T) {
	schedule := NewDailySchedule(3, 0, time.UTC)
	now := time.Date(2026, 2, 10, 1, 30, 0, 0, time.UTC)

	next := schedule.Next(now)

	assert.Equal(t, time.Date(2026, 2, 10, 3, 0, 0, 0, time.UTC), next)
}

func TestDailySchedule_NextRollsOverToTomorrow(t *testing.T) {
	schedule := NewDailySchedule(3, 0, time.UTC)
	now := time.Date(2026, 2, 10, 3, 0, 0, 0, time.UTC)

	// Ровно в момент запуска следующий - завтра, не "прямо сейчас".
	next := schedule.Next(now)

	assert.Equal(t, time.Date(2026, 2, 11, 3, 0, 0, 0, time.UTC), next)
}

func TestDailySchedule_HonorsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	schedule := NewDailySchedule(3, 30, loc)
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) // 07:00 in New York

	next := schedule.Next(now)

	assert.Equal(t, time.Date(2026, 2, 11, 3, 30, 0, 0, loc), next)
}

func TestDailySchedule_NilLocationDefaultsToUTC(t *testing.T) {
	schedule := NewDailySchedule(0, 0, nil)

	assert.Equal(t, time.UTC, schedule.Location)
	assert.Equal(t, "@daily 00:00 UTC", schedule.String())
}
