package wellness

import (
	"slices"
	"time"
)

// Activity types with their own streak on the dashboard.
const (
	ActivityMeditation = "meditation"
	ActivityExercise   = "exercise"
)

// Dated is any record that carries a creation timestamp.
type Dated interface {
	Date() time.Time
}

// JournalRecord is a journal entry reduced to what streaks need.
type JournalRecord struct {
	CreatedAt time.Time `json:"created_at"`
}

// Date implements Dated.
func (r JournalRecord) Date() time.Time { return r.CreatedAt }

// ActivityRecord is one logged wellness activity.
type ActivityRecord struct {
	ActivityType string    `json:"activity_type"`
	Completed    bool      `json:"completed"`
	CreatedAt    time.Time `json:"created_at"`
}

// Date implements Dated.
func (r ActivityRecord) Date() time.Time { return r.CreatedAt }

// Streaks holds the four streaks shown side by side.
type Streaks struct {
	Mood       int `json:"mood"`
	Journal    int `json:"journal"`
	Meditation int `json:"meditation"`
	Exercise   int `json:"exercise"`
}

// Streak counts consecutive calendar days, ending today, that have at least
// one record. Days are taken in now's location. A streak is only current when
// today has a record: a history that stops yesterday yields 0.
func Streak[T Dated](records []T, now time.Time) int {
	if len(records) == 0 {
		return 0
	}

	loc := now.Location()
	expected := dayOf(now, loc)
	streak := 0
	for _, r := range sortedDescending(records) {
		day := dayOf(r.Date(), loc)
		switch {
		case day.Equal(expected):
			streak++
			expected = expected.AddDate(0, 0, -1)
		case day.After(expected):
			// already counted this day, or dated in the future
		default:
			return streak
		}
	}
	return streak
}

// LongestStreak returns the longest run of consecutive calendar days with at
// least one record anywhere in the history.
func LongestStreak[T Dated](records []T, loc *time.Location) int {
	if len(records) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.UTC
	}

	days := make([]time.Time, 0, len(records))
	for _, r := range records {
		days = append(days, dayOf(r.Date(), loc))
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	days = slices.CompactFunc(days, func(a, b time.Time) bool { return a.Equal(b) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
			longest = max(longest, run)
		} else {
			run = 1
		}
	}
	return longest
}

// CompletedOfType keeps the completed activities of one type.
func CompletedOfType(records []ActivityRecord, activityType string) []ActivityRecord {
	out := make([]ActivityRecord, 0, len(records))
	for _, r := range records {
		if r.Completed && r.ActivityType == activityType {
			out = append(out, r)
		}
	}
	return out
}

// ComputeStreaks applies Streak to moods, journals, and completed meditation
// and exercise activities.
func ComputeStreaks(moods []MoodRecord, journals []JournalRecord, activities []ActivityRecord, now time.Time) Streaks {
	return Streaks{
		Mood:       Streak(moods, now),
		Journal:    Streak(journals, now),
		Meditation: Streak(CompletedOfType(activities, ActivityMeditation), now),
		Exercise:   Streak(CompletedOfType(activities, ActivityExercise), now),
	}
}

// dayOf truncates t to its calendar day in loc, expressed as UTC midnight so
// day arithmetic is unaffected by DST transitions.
func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sortedDescending returns a copy of records ordered newest first.
func sortedDescending[T Dated](records []T) []T {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return b.Date().Compare(a.Date())
	})
	return sorted
}
