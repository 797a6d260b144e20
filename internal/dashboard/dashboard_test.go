package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermabackend/internal/wellness"
)

var tz = time.FixedZone("UTC+2", 2*60*60)

func TestBuild(t *testing.T) {
	now := time.Date(2026, 5, 4, 20, 0, 0, 0, tz)
	day := func(n int) time.Time { return now.AddDate(0, 0, -n) }

	in := Input{
		Moods: []wellness.MoodRecord{
			{Mood: wellness.MoodHappy, CreatedAt: day(3)},
			{Mood: wellness.MoodHappy, CreatedAt: day(2)},
			{Mood: wellness.MoodSad, CreatedAt: day(1)},
			{Mood: wellness.MoodHappy, CreatedAt: day(0)},
		},
		Journals: []wellness.JournalRecord{{CreatedAt: day(0)}},
		Activities: []wellness.ActivityRecord{
			{ActivityType: wellness.ActivityMeditation, Completed: true, CreatedAt: day(0)},
			{ActivityType: wellness.ActivityMeditation, Completed: true, CreatedAt: day(1)},
			{ActivityType: wellness.ActivityExercise, Completed: false, CreatedAt: day(0)},
		},
		Plant:   wellness.PlantState{Health: 50, GrowthStage: 2},
		Tracked: []string{wellness.ActivityMeditation, wellness.ActivityExercise},
	}

	s := Build(now, in)

	assert.Equal(t, "2026-05-04", s.Date)
	assert.Equal(t, wellness.Streaks{Mood: 4, Journal: 1, Meditation: 2, Exercise: 0}, s.Streaks)
	assert.Equal(t, 4, s.LongestStreak)
	assert.Equal(t, wellness.Declining, s.Trend.Direction)
	assert.InDelta(t, -38.89, s.Trend.ChangePercent, 0.01)
	assert.InDelta(t, 7.25, s.AverageMood, 1e-9)
	assert.Equal(t, 4, s.CheckIns)

	assert.True(t, s.Completion.MoodLogged)
	assert.True(t, s.Completion.Journaled)
	assert.Equal(t, 1, s.Completion.CompletedActivities)
	assert.InDelta(t, 0.75, s.Completion.Ratio, 1e-9)
	// base 50% health at stage 2 of 5 is 20, plus 0.75 of the 20 point bonus
	assert.InDelta(t, 35.0, s.GrowthPercent, 1e-9)

	require.Len(t, s.Insights, 3)
	assert.Contains(t, s.Insights[0], "dipped 39%")
	assert.Contains(t, s.Insights[1], "4-day")
	assert.Contains(t, s.Insights[2], "3 of 4")
}

func TestBuild_Empty(t *testing.T) {
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	s := Build(now, Input{Plant: wellness.NewPlant()})

	assert.Equal(t, wellness.Streaks{}, s.Streaks)
	assert.Equal(t, 0, s.LongestStreak)
	assert.Equal(t, wellness.TrendResult{Direction: wellness.Stable}, s.Trend)
	assert.Zero(t, s.AverageMood)
	assert.Zero(t, s.GrowthPercent)
	assert.Len(t, s.Insights, 3)
}

func TestBuild_DayBoundaryFollowsLocation(t *testing.T) {
	// 23:30 UTC on the 3rd is already the 4th in UTC+2.
	mood := wellness.MoodRecord{Mood: wellness.MoodCalm, CreatedAt: time.Date(2026, 5, 3, 23, 30, 0, 0, time.UTC)}
	in := Input{Moods: []wellness.MoodRecord{mood}, Plant: wellness.NewPlant()}

	local := Build(time.Date(2026, 5, 4, 9, 0, 0, 0, tz), in)
	utc := Build(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC), in)

	assert.Equal(t, 1, local.Streaks.Mood)
	assert.True(t, local.Completion.MoodLogged)
	assert.Equal(t, 0, utc.Streaks.Mood)
	assert.False(t, utc.Completion.MoodLogged)
}

func TestBuild_WindowStartLimitsTrendOnly(t *testing.T) {
	now := time.Date(2026, 5, 4, 20, 0, 0, 0, tz)
	day := func(n int) time.Time { return now.AddDate(0, 0, -n) }
	in := Input{
		Moods: []wellness.MoodRecord{
			{Mood: wellness.MoodHappy, CreatedAt: day(3)},
			{Mood: wellness.MoodHappy, CreatedAt: day(2)},
			{Mood: wellness.MoodSad, CreatedAt: day(1)},
			{Mood: wellness.MoodHappy, CreatedAt: day(0)},
		},
		Plant:       wellness.NewPlant(),
		WindowStart: time.Date(2026, 5, 3, 0, 0, 0, 0, tz),
	}

	s := Build(now, in)

	assert.Equal(t, 4, s.Streaks.Mood)
	assert.Equal(t, 2, s.LongestStreak)
	assert.Equal(t, 2, s.CheckIns)
	assert.InDelta(t, 5.5, s.AverageMood, 1e-9)
	assert.Equal(t, wellness.Improving, s.Trend.Direction)
}
