package wellness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeTrend(t *testing.T) {
	tests := []struct {
		name      string
		series    []int
		direction Direction
	}{
		{"nil", nil, Stable},
		{"single", []int{5}, Stable},
		{"flat", []int{8, 8, 8, 8}, Stable},
		{"recent better", []int{9, 9, 5, 5}, Improving},
		{"recent worse", []int{5, 5, 9, 9}, Declining},
		{"odd length", []int{9, 9, 9, 1, 1}, Improving},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeTrend(tt.series)
			assert.Equal(t, tt.direction, got.Direction)
			switch tt.direction {
			case Improving:
				assert.Greater(t, got.ChangePercent, 0.0)
			case Declining:
				assert.Less(t, got.ChangePercent, 0.0)
			default:
				assert.Zero(t, got.ChangePercent)
			}
		})
	}
}

func TestAnalyzeTrend_Values(t *testing.T) {
	assert.InDelta(t, 80.0, AnalyzeTrend([]int{9, 9, 5, 5}).ChangePercent, 1e-9)
	assert.InDelta(t, -44.444, AnalyzeTrend([]int{5, 5, 9, 9}).ChangePercent, 1e-3)
	// Middle element goes to the recent half: (9+9+9)/3 vs (1+1)/2.
	assert.InDelta(t, 800.0, AnalyzeTrend([]int{9, 9, 9, 1, 1}).ChangePercent, 1e-9)
}

func TestAnalyzeTrend_ZeroOlderMean(t *testing.T) {
	assert.Equal(t, TrendResult{Direction: Stable}, AnalyzeTrend([]int{4, 0}))
	assert.Equal(t, TrendResult{Direction: Stable}, AnalyzeTrend([]int{3, 1, 0, 0}))
}

func TestEndToEndScenario(t *testing.T) {
	today := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	records := []MoodRecord{
		{Mood: ParseMood("happy"), CreatedAt: today},
		{Mood: ParseMood("sad"), CreatedAt: today.AddDate(0, 0, -1)},
		{Mood: ParseMood("happy"), CreatedAt: today.AddDate(0, 0, -2)},
		{Mood: ParseMood("happy"), CreatedAt: today.AddDate(0, 0, -3)},
	}

	assert.Equal(t, 4, Streak(records, today))
	assert.Equal(t, []int{9, 2, 9, 9}, MoodScores(records))

	trend := MoodTrend(records)
	assert.Equal(t, Declining, trend.Direction)
	assert.InDelta(t, -38.89, trend.ChangePercent, 0.01)
	assert.InDelta(t, 7.25, AverageMood(records), 1e-9)
}

func TestAverageMood_Empty(t *testing.T) {
	assert.Zero(t, AverageMood(nil))
}
