package api

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/logging"
	"github.com/thermabackend/internal/models"
	"github.com/thermabackend/internal/wellness"
)

// reminderLookback bounds how far back check-ins are read; longer streaks
// are reported as at least this long.
const reminderLookback = 30 * 24 * time.Hour

const NotificationStreakReminder = "streak_reminder"

type ReminderResult struct {
	Candidates int `json:"candidates"`
	Reminded   int `json:"reminded"`
	Failed     int `json:"failed"`
}

// StreakReminder runs on a schedule, typically hourly. It notifies every
// user whose mood streak was alive yesterday but who has not checked in
// today, each in their own timezone, at most once per local day.
func (h *Handler) StreakReminder(ctx context.Context, event events.CloudWatchEvent) (ReminderResult, error) {
	ctx = logging.WithRequestID(ctx, event.ID)
	now := h.clock.Now()

	candidates, err := h.store.ListReminderCandidates(ctx, now.Add(-reminderLookback), NotificationStreakReminder)
	if err != nil {
		return ReminderResult{}, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	result := ReminderResult{Candidates: len(candidates)}
	for _, c := range candidates {
		streak, due := reminderDue(c, now)
		if !due {
			continue
		}

		n := &models.Notification{
			UserID:    c.UserID,
			Kind:      NotificationStreakReminder,
			Message:   fmt.Sprintf("Check in today to keep your %d-day streak going.", streak),
			CreatedAt: now,
		}
		if err := h.store.CreateNotification(ctx, n); err != nil {
			result.Failed++
			h.logger.Warn(logging.WithUserID(ctx, c.UserID), "failed to create streak reminder", zap.Error(err))
			continue
		}
		result.Reminded++
	}

	h.logger.Info(ctx, "streak reminders sent",
		zap.Int("candidates", result.Candidates),
		zap.Int("reminded", result.Reminded),
		zap.Int("failed", result.Failed))
	return result, nil
}

// reminderDue reports whether c has no check-in or reminder today but a live
// streak as of yesterday, and returns that streak.
func reminderDue(c models.ReminderCandidate, now time.Time) (int, bool) {
	local := clock.Location(c.Timezone)
	today := now.In(local)
	if !c.LastReminded.IsZero() && sameDay(c.LastReminded.In(local), today) {
		return 0, false
	}

	records := make([]wellness.MoodRecord, len(c.MoodTimes))
	for i, t := range c.MoodTimes {
		records[i] = wellness.MoodRecord{Mood: wellness.MoodUnknown, CreatedAt: t}
	}

	if wellness.Streak(records, today) > 0 {
		return 0, false
	}
	streak := wellness.Streak(records, today.AddDate(0, 0, -1))
	return streak, streak > 0
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
