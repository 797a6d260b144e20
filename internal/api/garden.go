package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/dashboard"
	"github.com/thermabackend/internal/models"
	"github.com/thermabackend/internal/quota"
	"github.com/thermabackend/internal/wellness"
)

type WaterPlantResponse struct {
	Plant         models.Plant        `json:"plant"`
	Completion    wellness.Completion `json:"completion"`
	GrowthPercent float64             `json:"growth_percent"`
}

type DashboardResponse struct {
	dashboard.Summary
	WindowDays   int                `json:"window_days"`
	WindowCapped bool               `json:"window_capped"`
	InsightQuota *quota.QuotaResult `json:"insight_quota,omitempty"`
}

// WaterPlant handles POST /garden/water. A repeat without an idempotency key
// waters again.
func (h *Handler) WaterPlant(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)
	ctx, userID, err := h.authenticate(ctx, request)
	if err != nil {
		return unauthorized(err), nil
	}

	var req struct {
		IdempotencyKey string `json:"idempotency_key,omitempty"`
	}
	if err := decodeBody(request, &req, true); err != nil {
		return h.failure(ctx, "water plant", err), nil
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return h.failure(ctx, "load user", err), nil
	}

	water := func() (interface{}, error) {
		now := clock.NowIn(h.clock, user.Timezone)
		plant, err := h.store.WaterPlant(ctx, user.ID, now)
		if err != nil {
			return nil, err
		}
		completion, err := h.todayCompletion(ctx, user, now)
		if err != nil {
			return nil, err
		}
		h.logger.Debug(ctx, "plant watered", zap.Int("health", plant.Health), zap.Int("stage", plant.GrowthStage))
		return &WaterPlantResponse{
			Plant:         plant,
			Completion:    completion,
			GrowthPercent: wellness.Growth(plant.State(), completion.Ratio),
		}, nil
	}

	return h.idempotent(ctx, request, userID, "POST /garden/water", clientKey(request, req.IdempotencyKey),
		http.StatusOK, "water plant", water), nil
}

// todayCompletion reads today's records and derives the checklist state.
func (h *Handler) todayCompletion(ctx context.Context, user models.User, now time.Time) (wellness.Completion, error) {
	from, to := dayWindow(now, 1)
	moods, err := h.store.ListMoodEntries(ctx, user.ID, from, to)
	if err != nil {
		return wellness.Completion{}, err
	}
	journals, err := h.store.ListJournalEntries(ctx, user.ID, from, to)
	if err != nil {
		return wellness.Completion{}, err
	}
	activities, err := h.store.ListActivities(ctx, user.ID, from, to)
	if err != nil {
		return wellness.Completion{}, err
	}
	return wellness.TodayCompletion(
		models.MoodRecords(moods),
		models.JournalRecords(journals),
		models.ActivityRecords(activities),
		h.trackedActivities(user),
		now,
	), nil
}

// Dashboard handles GET /dashboard?days=N. The window defaults to, and is
// capped at, the user's subscription allowance.
func (h *Handler) Dashboard(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)
	ctx, userID, err := h.authenticate(ctx, request)
	if err != nil {
		return unauthorized(err), nil
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return h.failure(ctx, "load user", err), nil
	}

	days, capped, err := h.windowDays(request, user)
	if err != nil {
		return h.failure(ctx, "build dashboard", err), nil
	}

	now := clock.NowIn(h.clock, user.Timezone)
	// streaks look further back than the display window
	from, to := dayWindow(now, max(days, streakLookbackDays))
	windowStart, _ := dayWindow(now, days)

	moods, err := h.store.ListMoodEntries(ctx, userID, from, to)
	if err != nil {
		return h.failure(ctx, "load moods", err), nil
	}
	journals, err := h.store.ListJournalEntries(ctx, userID, from, to)
	if err != nil {
		return h.failure(ctx, "load journal entries", err), nil
	}
	activities, err := h.store.ListActivities(ctx, userID, from, to)
	if err != nil {
		return h.failure(ctx, "load activities", err), nil
	}
	plant, err := h.store.GetPlant(ctx, userID)
	if err != nil {
		return h.failure(ctx, "load plant", err), nil
	}

	summary := dashboard.Build(now, dashboard.Input{
		Moods:       models.MoodRecords(moods),
		Journals:    models.JournalRecords(journals),
		Activities:  models.ActivityRecords(activities),
		Plant:       plant.State(),
		Tracked:     h.trackedActivities(user),
		WindowStart: windowStart,
	})

	resp := DashboardResponse{
		Summary:      summary,
		WindowDays:   days,
		WindowCapped: capped,
	}
	if h.quota != nil {
		usage, err := h.quota.CheckInsightQuota(ctx, userID, user.SubscriptionTier, now)
		if err != nil {
			h.logger.Warn(ctx, "insight quota unavailable", zap.Error(err))
		} else {
			resp.InsightQuota = usage
		}
	}
	return jsonResponse(http.StatusOK, resp), nil
}

// windowDays reads ?days=N. It defaults to the user's subscription allowance
// and larger requests are capped to it.
func (h *Handler) windowDays(request events.APIGatewayProxyRequest, user models.User) (days int, capped bool, err error) {
	allowance := h.analytics.WindowFor(user.SubscriptionTier.Premium())
	raw := request.QueryStringParameters["days"]
	if raw == "" {
		return allowance, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false, badRequest("VALIDATION_ERROR", "days must be a positive integer")
	}
	return min(n, allowance), n > allowance, nil
}
