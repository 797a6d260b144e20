package wellness

import (
	"math"
	"time"
)

const (
	MaxHealth  = 100
	MinStage   = 1
	MaxStage   = 5
	WaterStep  = 10
	dailyBonus = 20
)

// PlantState is the slow-moving state of a user's garden plant.
type PlantState struct {
	Health      int `json:"health"`
	GrowthStage int `json:"growth_stage"`
}

// NewPlant returns a freshly planted seedling.
func NewPlant() PlantState {
	return PlantState{Health: 0, GrowthStage: MinStage}
}

// Water applies one watering: health rises by WaterStep up to MaxHealth, and
// the stage advances while health sits at MaxHealth and the plant is not yet
// fully grown.
func (p PlantState) Water() PlantState {
	next := p
	next.Health = min(MaxHealth, p.Health+WaterStep)
	if next.Health == MaxHealth && next.GrowthStage < MaxStage {
		next.GrowthStage++
	}
	return next
}

// Growth projects the 0-100 display percentage of a plant. Health and stage
// give the base; today's completion ratio adds up to 20 points on top.
func Growth(plant PlantState, dailyCompletionRatio float64) float64 {
	base := float64(plant.Health) / MaxHealth * float64(plant.GrowthStage) / MaxStage * 100
	bonus := clampUnit(dailyCompletionRatio) * dailyBonus
	return math.Max(0, math.Min(100, base+bonus))
}

// DailyCompletionRatio is the completed share of today's checklist: one
// mood check-in, one journal entry and totalActivities activities.
func DailyCompletionRatio(moodLogged, journaled bool, completedActivities, totalActivities int) float64 {
	done := float64(max(0, completedActivities))
	if moodLogged {
		done++
	}
	if journaled {
		done++
	}
	return clampUnit(done / float64(2+max(0, totalActivities)))
}

// Completion describes today's checklist progress.
type Completion struct {
	MoodLogged          bool    `json:"mood_logged"`
	Journaled           bool    `json:"journaled"`
	CompletedActivities int     `json:"completed_activities"`
	TotalActivities     int     `json:"total_activities"`
	Ratio               float64 `json:"ratio"`
}

// TodayCompletion derives today's checklist from record lists. Each tracked
// activity type counts once however many times it was completed today.
func TodayCompletion(moods []MoodRecord, journals []JournalRecord, activities []ActivityRecord, tracked []string, now time.Time) Completion {
	loc := now.Location()
	today := dayOf(now, loc)

	c := Completion{
		MoodLogged: anyOnDay(moods, today, loc),
		Journaled:  anyOnDay(journals, today, loc),
	}

	wanted := make(map[string]bool, len(tracked))
	for _, t := range tracked {
		wanted[t] = false
	}
	c.TotalActivities = len(wanted)

	for _, a := range activities {
		done, ok := wanted[a.ActivityType]
		if !ok || done || !a.Completed || !dayOf(a.CreatedAt, loc).Equal(today) {
			continue
		}
		wanted[a.ActivityType] = true
		c.CompletedActivities++
	}

	c.Ratio = DailyCompletionRatio(c.MoodLogged, c.Journaled, c.CompletedActivities, c.TotalActivities)
	return c
}

func anyOnDay[T Dated](records []T, day time.Time, loc *time.Location) bool {
	for _, r := range records {
		if dayOf(r.Date(), loc).Equal(day) {
			return true
		}
	}
	return false
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
