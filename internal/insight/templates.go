package insight

import (
	"fmt"
	"math"

	"github.com/thermabackend/internal/wellness"
)

var journalTemplates = map[Category]string{
	Anxiety:   "It sounds like worry took up space today. A few slow breaths or a short grounding exercise can help settle your mind.",
	Stress:    "You mentioned a lot on your plate. Breaking tasks into small steps and scheduling a real break can ease the pressure.",
	Sadness:   "It sounds like a heavy day. Be gentle with yourself, and consider reaching out to someone you trust.",
	Anger:     "Frustration came through in your entry. Naming what triggered it is a good first step toward letting it go.",
	Fatigue:   "Your entry mentions feeling drained. Protecting your sleep tonight may help more than anything else.",
	Gratitude: "Noticing what you're thankful for is a powerful habit. Keep collecting these moments.",
	Joy:       "There's real brightness in this entry. Take a moment to notice what made today good.",
}

const neutralJournalInsight = "Thanks for checking in with yourself. Writing regularly helps you spot patterns over time."

// JournalInsight picks the insight sentence for a journal entry.
func JournalInsight(text string) string {
	if tmpl, ok := journalTemplates[Dominant(text)]; ok {
		return tmpl
	}
	return neutralJournalInsight
}

// TrendSentence describes a mood trend. Percentages are rounded to whole
// numbers; a change that rounds to zero reads as steady.
func TrendSentence(t wellness.TrendResult) string {
	pct := int(math.Round(math.Abs(t.ChangePercent)))
	switch {
	case t.Direction == wellness.Improving && pct > 0:
		return fmt.Sprintf("Your mood improved %d%% compared with the earlier part of this period.", pct)
	case t.Direction == wellness.Declining && pct > 0:
		return fmt.Sprintf("Your mood dipped %d%% compared with the earlier part of this period.", pct)
	default:
		return "Your mood has been steady over this period."
	}
}

// StreakSentence describes the mood check-in streak.
func StreakSentence(s wellness.Streaks) string {
	switch {
	case s.Mood == 0:
		return "Log a mood today to start a new streak."
	case s.Mood == 1:
		return "You checked in today. Come back tomorrow to build a streak."
	default:
		return fmt.Sprintf("You're on a %d-day check-in streak. Keep it going!", s.Mood)
	}
}

// GardenSentence describes today's checklist progress and plant growth.
func GardenSentence(c wellness.Completion, growth float64) string {
	total := c.TotalActivities + 2
	done := c.CompletedActivities
	if c.MoodLogged {
		done++
	}
	if c.Journaled {
		done++
	}
	if done >= total {
		return fmt.Sprintf("Everything on today's list is done. Your garden is %.0f%% grown.", growth)
	}
	return fmt.Sprintf("%d of %d daily steps done. Your garden is %.0f%% grown.", done, total, growth)
}

// Summaries returns the dashboard sentences in display order.
func Summaries(trend wellness.TrendResult, streaks wellness.Streaks, c wellness.Completion, growth float64) []string {
	return []string{
		TrendSentence(trend),
		StreakSentence(streaks),
		GardenSentence(c, growth),
	}
}
