package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/insight"
	"github.com/thermabackend/internal/models"
	"github.com/thermabackend/internal/wellness"
)

// streakLookbackDays bounds the history read to compute a current streak.
const streakLookbackDays = 365

type MoodCheckInRequest struct {
	Mood           string `json:"mood"`
	Note           string `json:"note,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type MoodCheckInResponse struct {
	ID         string    `json:"id"`
	Mood       string    `json:"mood"`
	Score      int       `json:"score"`
	MoodStreak int       `json:"mood_streak"`
	Encrypted  bool      `json:"encrypted"`
	CreatedAt  time.Time `json:"created_at"`
}

type JournalEntryRequest struct {
	Content        string   `json:"content"`
	Mood           string   `json:"mood,omitempty"`
	Tags           []string `json:"tags"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

type JournalEntryResponse struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Mood              string          `json:"mood,omitempty"`
	Categories        []insight.Match `json:"categories"`
	Insight           string          `json:"insight,omitempty"`
	InsightLimited    bool            `json:"insight_limited"`
	InsightsRemaining int             `json:"insights_remaining"`
	JournalStreak     int             `json:"journal_streak"`
	Encrypted         bool            `json:"encrypted"`
	CreatedAt         time.Time       `json:"created_at"`
}

type LogActivityRequest struct {
	ActivityType   string `json:"activity_type"`
	Completed      *bool  `json:"completed,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type LogActivityResponse struct {
	models.Activity
	Streak int `json:"streak"`
}

// MoodCheckIn handles POST /moods.
func (h *Handler) MoodCheckIn(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)
	ctx, userID, err := h.authenticate(ctx, request)
	if err != nil {
		return unauthorized(err), nil
	}

	var req MoodCheckInRequest
	if err := decodeBody(request, &req, false); err != nil {
		return h.failure(ctx, "record mood", err), nil
	}
	label := wellness.ParseMood(req.Mood)
	if !label.Known() {
		return createErrorResponse(http.StatusBadRequest, "VALIDATION_ERROR", "Unknown mood",
			fmt.Sprintf("mood must be one of %s", moodList())), nil
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return h.failure(ctx, "load user", err), nil
	}

	return h.idempotent(ctx, request, userID, "POST /moods", clientKey(request, req.IdempotencyKey),
		http.StatusCreated, "record mood", func() (interface{}, error) {
			return h.processMoodCheckIn(ctx, user, label, req.Note)
		}), nil
}

func (h *Handler) processMoodCheckIn(ctx context.Context, user models.User, label wellness.MoodLabel, note string) (*MoodCheckInResponse, error) {
	now := clock.NowIn(h.clock, user.Timezone)

	entry := &models.MoodEntry{
		UserID:    user.ID,
		Mood:      label.String(),
		CreatedAt: now,
	}
	if note != "" {
		encrypted, err := h.cipher.EncryptPHI(ctx, note)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt note: %w", err)
		}
		entry.Note = encrypted
		entry.Encrypted = true
	}
	if err := h.store.CreateMoodEntry(ctx, entry); err != nil {
		return nil, err
	}

	from, to := dayWindow(now, streakLookbackDays)
	moods, err := h.store.ListMoodEntries(ctx, user.ID, from, to)
	if err != nil {
		return nil, err
	}

	return &MoodCheckInResponse{
		ID:         entry.ID,
		Mood:       entry.Mood,
		Score:      label.Score(),
		MoodStreak: wellness.Streak(models.MoodRecords(moods), now),
		Encrypted:  entry.Encrypted,
		CreatedAt:  entry.CreatedAt,
	}, nil
}

// JournalEntry handles POST /journal-entries.
func (h *Handler) JournalEntry(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)
	ctx, userID, err := h.authenticate(ctx, request)
	if err != nil {
		return unauthorized(err), nil
	}

	var req JournalEntryRequest
	if err := decodeBody(request, &req, false); err != nil {
		return h.failure(ctx, "process journal entry", err), nil
	}
	if strings.TrimSpace(req.Content) == "" {
		return createErrorResponse(http.StatusBadRequest, "VALIDATION_ERROR", "Content is required", ""), nil
	}
	if req.Mood != "" && !wellness.ParseMood(req.Mood).Known() {
		return createErrorResponse(http.StatusBadRequest, "VALIDATION_ERROR", "Unknown mood",
			fmt.Sprintf("mood must be one of %s", moodList())), nil
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return h.failure(ctx, "load user", err), nil
	}

	return h.idempotent(ctx, request, userID, "POST /journal-entries", clientKey(request, req.IdempotencyKey),
		http.StatusCreated, "process journal entry", func() (interface{}, error) {
			return h.processJournalEntry(ctx, user, req)
		}), nil
}

func (h *Handler) processJournalEntry(ctx context.Context, user models.User, req JournalEntryRequest) (*JournalEntryResponse, error) {
	now := clock.NowIn(h.clock, user.Timezone)

	mood := req.Mood
	if mood == "" {
		if suggested := insight.SuggestMood(req.Content); suggested.Known() {
			mood = suggested.String()
		}
	}

	resp := &JournalEntryResponse{
		UserID:     user.ID,
		Mood:       mood,
		Categories: insight.Classify(req.Content),
	}

	// Without quota the entry is still saved, just without a generated insight.
	usage, err := h.quota.ReserveInsight(ctx, user.ID, user.SubscriptionTier, now)
	switch {
	case err != nil:
		h.logger.Warn(ctx, "insight quota reservation failed", zap.Error(err))
		resp.InsightLimited = true
	case !usage.Allowed:
		resp.InsightLimited = true
	default:
		resp.Insight = insight.JournalInsight(req.Content)
		resp.InsightsRemaining = usage.Remaining
	}

	content, err := h.cipher.EncryptPHI(ctx, req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt content: %w", err)
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	tags, err = h.cipher.EncryptPHIArray(ctx, tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt tags: %w", err)
	}

	entry := &models.JournalEntry{
		UserID:    user.ID,
		Content:   content,
		Mood:      mood,
		Tags:      tags,
		Insight:   resp.Insight,
		Encrypted: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateJournalEntry(ctx, entry); err != nil {
		return nil, err
	}
	resp.ID = entry.ID
	resp.Encrypted = entry.Encrypted
	resp.CreatedAt = entry.CreatedAt

	from, to := dayWindow(now, streakLookbackDays)
	journals, err := h.store.ListJournalEntries(ctx, user.ID, from, to)
	if err != nil {
		return nil, err
	}
	resp.JournalStreak = wellness.Streak(models.JournalRecords(journals), now)
	return resp, nil
}

// LogActivity handles POST /activities. Completed defaults to true.
func (h *Handler) LogActivity(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)
	ctx, userID, err := h.authenticate(ctx, request)
	if err != nil {
		return unauthorized(err), nil
	}

	var req LogActivityRequest
	if err := decodeBody(request, &req, false); err != nil {
		return h.failure(ctx, "log activity", err), nil
	}
	activityType := strings.ToLower(strings.TrimSpace(req.ActivityType))
	if activityType == "" {
		return createErrorResponse(http.StatusBadRequest, "VALIDATION_ERROR", "Activity type is required", ""), nil
	}
	completed := req.Completed == nil || *req.Completed

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return h.failure(ctx, "load user", err), nil
	}

	return h.idempotent(ctx, request, userID, "POST /activities", clientKey(request, req.IdempotencyKey),
		http.StatusCreated, "log activity", func() (interface{}, error) {
			now := clock.NowIn(h.clock, user.Timezone)
			activity := models.Activity{
				UserID:       user.ID,
				ActivityType: activityType,
				Completed:    completed,
				CreatedAt:    now,
			}
			if err := h.store.CreateActivity(ctx, &activity); err != nil {
				return nil, err
			}

			from, to := dayWindow(now, streakLookbackDays)
			activities, err := h.store.ListActivities(ctx, user.ID, from, to)
			if err != nil {
				return nil, err
			}
			done := wellness.CompletedOfType(models.ActivityRecords(activities), activityType)
			return &LogActivityResponse{Activity: activity, Streak: wellness.Streak(done, now)}, nil
		}), nil
}

func moodList() string {
	labels := wellness.MoodLabels()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}
