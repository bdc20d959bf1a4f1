package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureProgressEagerRecompute, nil))
	assert.True(t, ff.IsEnabled(FeatureProgressSummaryCache, nil))
	assert.False(t, ff.IsEnabled(FeatureEventsRedisBus, nil))
	assert.False(t, ff.IsEnabled("unknown.feature", nil))
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_EVENTS_REDIS_BUS", "true")
	t.Setenv("FEATURE_PROGRESS_SUMMARY_CACHE", "false")

	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureEventsRedisBus, nil))
	assert.False(t, ff.IsEnabled(FeatureProgressSummaryCache, nil))
}

func TestFeatureFlags_StudentOverrideWins(t *testing.T) {
	ff := LoadFeatureFlags()
	ff.SetStudentOverride("student-1", FeatureEventsRedisBus, true)

	ctx := &FeatureContext{StudentID: "student-1"}
	assert.True(t, ff.IsEnabled(FeatureEventsRedisBus, ctx))

	other := &FeatureContext{StudentID: "student-2"}
	assert.False(t, ff.IsEnabled(FeatureEventsRedisBus, other))

	ff.ClearStudentOverrides("student-1")
	assert.False(t, ff.IsEnabled(FeatureEventsRedisBus, ctx))
}

func TestFeatureFlags_AdminSeesEverything(t *testing.T) {
	ff := LoadFeatureFlags()

	ctx := &FeatureContext{StudentID: "admin-1", IsAdmin: true}
	assert.True(t, ff.IsEnabled(FeatureEventsRedisBus, ctx))
}

func TestFeatureFlags_RolloutIsConsistent(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureBulkImport, 50))

	ctx := &FeatureContext{StudentID: "student-42"}
	first := ff.IsEnabled(FeatureBulkImport, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureBulkImport, ctx))
	}
}

func TestFeatureFlags_RolloutPercentValidation(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureBulkImport, 150), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRolloutPercent("unknown.feature", 10), ErrFeatureNotFound)
}
