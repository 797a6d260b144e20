// Package dashboard composes the wellness engine over one window of records
// into the summary shown on the home screen and the analytics tab.
package dashboard

import (
	"time"

	"github.com/thermabackend/internal/insight"
	"github.com/thermabackend/internal/wellness"
)

// Input is everything the summary is derived from. Record slices may be in
// any order.
type Input struct {
	Moods      []wellness.MoodRecord
	Journals   []wellness.JournalRecord
	Activities []wellness.ActivityRecord
	Plant      wellness.PlantState
	// Tracked lists the activity types on the user's daily checklist.
	Tracked []string
	// WindowStart limits trend, average and longest streak to moods at or
	// after it. Current streaks always use the full history. Zero means no limit.
	WindowStart time.Time
}

// Summary is the derived dashboard payload.
type Summary struct {
	Date          string               `json:"date"`
	Streaks       wellness.Streaks     `json:"streaks"`
	LongestStreak int                  `json:"longest_mood_streak"`
	Trend         wellness.TrendResult `json:"trend"`
	AverageMood   float64              `json:"average_mood"`
	CheckIns      int                  `json:"check_ins"`
	Completion    wellness.Completion  `json:"completion"`
	Plant         wellness.PlantState  `json:"plant"`
	GrowthPercent float64              `json:"growth_percent"`
	Insights      []string             `json:"insights"`
}

// Build derives the summary as of now. Calendar days are taken in now's
// location.
func Build(now time.Time, in Input) Summary {
	streaks := wellness.ComputeStreaks(in.Moods, in.Journals, in.Activities, now)
	windowed := moodsSince(in.Moods, in.WindowStart)
	trend := wellness.MoodTrend(windowed)
	completion := wellness.TodayCompletion(in.Moods, in.Journals, in.Activities, in.Tracked, now)
	growth := wellness.Growth(in.Plant, completion.Ratio)

	return Summary{
		Date:          now.Format("2006-01-02"),
		Streaks:       streaks,
		LongestStreak: wellness.LongestStreak(windowed, now.Location()),
		Trend:         trend,
		AverageMood:   wellness.AverageMood(windowed),
		CheckIns:      len(windowed),
		Completion:    completion,
		Plant:         in.Plant,
		GrowthPercent: growth,
		Insights:      insight.Summaries(trend, streaks, completion, growth),
	}
}

func moodsSince(records []wellness.MoodRecord, start time.Time) []wellness.MoodRecord {
	if start.IsZero() {
		return records
	}
	out := make([]wellness.MoodRecord, 0, len(records))
	for _, r := range records {
		if !r.CreatedAt.Before(start) {
			out = append(out, r)
		}
	}
	return out
}
