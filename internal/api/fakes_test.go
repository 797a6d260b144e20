package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/thermabackend/internal/auth"
	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/config"
	"github.com/thermabackend/internal/db"
	"github.com/thermabackend/internal/logging"
	"github.com/thermabackend/internal/models"
	"github.com/thermabackend/internal/quota"
	"github.com/thermabackend/internal/wellness"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	users         map[string]models.User
	moods         []models.MoodEntry
	journals      []models.JournalEntry
	activities    []models.Activity
	plants        map[string]wellness.PlantState
	notifications []models.Notification
	failNotify    map[string]bool
	nextID        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]models.User{},
		plants:     map[string]wellness.PlantState{},
		failNotify: map[string]bool{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(_ context.Context, email, hash, tz string, now time.Time) (models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return models.User{}, db.ErrEmailTaken
		}
	}
	u := models.User{
		ID:               f.id("user"),
		Email:            email,
		Password:         hash,
		SubscriptionTier: models.TierFree,
		Timezone:         tz,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.users[u.ID] = u
	f.plants[u.ID] = wellness.NewPlant()
	return u, nil
}

func (f *fakeStore) GetUser(_ context.Context, userID string) (models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, db.ErrNotFound
}

func (f *fakeStore) UpdateProfile(_ context.Context, userID, tz string, activities []string, now time.Time) error {
	u, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.Timezone = tz
	u.TrackedActivities = activities
	u.UpdatedAt = now
	f.users[userID] = u
	return nil
}

func (f *fakeStore) CreateMoodEntry(_ context.Context, e *models.MoodEntry) error {
	e.ID = f.id("mood")
	f.moods = append(f.moods, *e)
	return nil
}

func (f *fakeStore) ListMoodEntries(_ context.Context, userID string, from, to time.Time) ([]models.MoodEntry, error) {
	return window(f.moods, func(e models.MoodEntry) (string, time.Time) { return e.UserID, e.CreatedAt }, userID, from, to), nil
}

func (f *fakeStore) CreateJournalEntry(_ context.Context, e *models.JournalEntry) error {
	e.ID = f.id("journal")
	f.journals = append(f.journals, *e)
	return nil
}

func (f *fakeStore) ListJournalEntries(_ context.Context, userID string, from, to time.Time) ([]models.JournalEntry, error) {
	return window(f.journals, func(e models.JournalEntry) (string, time.Time) { return e.UserID, e.CreatedAt }, userID, from, to), nil
}

func (f *fakeStore) CreateActivity(_ context.Context, a *models.Activity) error {
	a.ID = f.id("activity")
	f.activities = append(f.activities, *a)
	return nil
}

func (f *fakeStore) ListActivities(_ context.Context, userID string, from, to time.Time) ([]models.Activity, error) {
	return window(f.activities, func(a models.Activity) (string, time.Time) { return a.UserID, a.CreatedAt }, userID, from, to), nil
}

func (f *fakeStore) GetPlant(_ context.Context, userID string) (models.Plant, error) {
	p, ok := f.plants[userID]
	if !ok {
		return models.Plant{}, db.ErrNotFound
	}
	return models.Plant{UserID: userID, Health: p.Health, GrowthStage: p.GrowthStage}, nil
}

func (f *fakeStore) WaterPlant(_ context.Context, userID string, now time.Time) (models.Plant, error) {
	p, ok := f.plants[userID]
	if !ok {
		return models.Plant{}, db.ErrNotFound
	}
	next := p.Water()
	f.plants[userID] = next
	return models.Plant{UserID: userID, Health: next.Health, GrowthStage: next.GrowthStage, UpdatedAt: now}, nil
}

func (f *fakeStore) ListReminderCandidates(_ context.Context, since time.Time, kind string) ([]models.ReminderCandidate, error) {
	var out []models.ReminderCandidate
	ids := make([]string, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		entries := window(f.moods, func(e models.MoodEntry) (string, time.Time) { return e.UserID, e.CreatedAt }, id, since, since.AddDate(1, 0, 0))
		if len(entries) == 0 {
			continue
		}
		c := models.ReminderCandidate{UserID: id, Timezone: f.users[id].Timezone}
		for _, e := range entries {
			c.MoodTimes = append(c.MoodTimes, e.CreatedAt)
		}
		for _, n := range f.notifications {
			if n.UserID == id && n.Kind == kind && n.CreatedAt.After(c.LastReminded) {
				c.LastReminded = n.CreatedAt
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n *models.Notification) error {
	if f.failNotify[n.UserID] {
		return errors.New("insert failed")
	}
	n.ID = f.id("notification")
	f.notifications = append(f.notifications, *n)
	return nil
}

func window[T any](items []T, key func(T) (string, time.Time), userID string, from, to time.Time) []T {
	var out []T
	for _, it := range items {
		uid, at := key(it)
		if uid == userID && !at.Before(from) && at.Before(to) {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		_, ta := key(a)
		_, tb := key(b)
		return tb.Compare(ta)
	})
	return out
}

// fakeIdempotency replays the stored response for a repeated key.
type fakeIdempotency struct {
	responses map[string]json.RawMessage
	calls     int
}

func (f *fakeIdempotency) ProcessIdempotentRequest(_ context.Context, userID, endpoint, clientKey, body string, handler func() (interface{}, error)) (json.RawMessage, error) {
	f.calls++
	key := userID + "|" + endpoint + "|" + body
	if clientKey != "" {
		key = userID + "|" + endpoint + "|client:" + clientKey
	}
	if stored, ok := f.responses[key]; ok {
		return stored, nil
	}
	resp, err := handler()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	f.responses[key] = raw
	return raw, nil
}

// fakeCipher prefixes plaintext instead of encrypting it.
type fakeCipher struct{}

func (fakeCipher) EncryptPHI(_ context.Context, s string) (string, error) { return "enc:" + s, nil }

func (fakeCipher) DecryptPHI(_ context.Context, s string) (string, error) {
	plain, ok := strings.CutPrefix(s, "enc:")
	if !ok {
		return "", errors.New("not encrypted")
	}
	return plain, nil
}

func (c fakeCipher) EncryptPHIArray(ctx context.Context, in []string) ([]string, error) {
	return mapStrings(ctx, in, c.EncryptPHI)
}

func (c fakeCipher) DecryptPHIArray(ctx context.Context, in []string) ([]string, error) {
	return mapStrings(ctx, in, c.DecryptPHI)
}

func mapStrings(ctx context.Context, in []string, fn func(context.Context, string) (string, error)) ([]string, error) {
	out := make([]string, len(in))
	for i, s := range in {
		v, err := fn(ctx, s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeQuota allows limit insights per user.
type fakeQuota struct {
	limit      int
	used       map[string]int
	checkErr   error
	reserveErr error
}

func (f *fakeQuota) CheckInsightQuota(_ context.Context, userID string, _ models.SubscriptionTier, _ time.Time) (*quota.QuotaResult, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	used := f.used[userID]
	return &quota.QuotaResult{
		Allowed:    used < f.limit,
		Used:       used,
		DailyLimit: f.limit,
		Remaining:  max(0, f.limit-used),
	}, nil
}

func (f *fakeQuota) ReserveInsight(ctx context.Context, userID string, tier models.SubscriptionTier, now time.Time) (*quota.QuotaResult, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	res, _ := f.CheckInsightQuota(ctx, userID, tier, now)
	if !res.Allowed {
		return res, nil
	}
	f.used[userID]++
	res.Used++
	res.Remaining--
	return res, nil
}

// testNow is 10:00 in New York on 2026-03-10.
var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type fixture struct {
	h           *Handler
	store       *fakeStore
	idempotency *fakeIdempotency
	quota       *fakeQuota
	tokens      *auth.Manager
	logs        *logging.TestLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFixed(testNow)
	tokens, err := auth.NewManager("test-secret-0123456789", time.Hour, clk)
	require.NoError(t, err)

	f := &fixture{
		store:       newFakeStore(),
		idempotency: &fakeIdempotency{responses: map[string]json.RawMessage{}},
		quota:       &fakeQuota{limit: 1, used: map[string]int{}},
		tokens:      tokens,
		logs:        logging.NewTestLogger(),
	}
	f.h = New(Deps{
		Store:             f.store,
		Idempotency:       f.idempotency,
		Cipher:            fakeCipher{},
		Quota:             f.quota,
		Tokens:            tokens,
		Clock:             clk,
		Logger:            f.logs.Logger,
		Analytics:         config.AnalyticsConfig{WindowDays: 7, PremiumWindowDays: 90},
		DefaultActivities: []string{wellness.ActivityMeditation, wellness.ActivityExercise},
	})
	return f
}

// addUser stores a user in New York and returns its ID and bearer header.
func (f *fixture) addUser(t *testing.T, tier models.SubscriptionTier) (string, map[string]string) {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), fmt.Sprintf("u%d@example.com", len(f.store.users)), "x", "America/New_York", testNow)
	require.NoError(t, err)
	u.SubscriptionTier = tier
	f.store.users[u.ID] = u

	token, err := f.tokens.GenerateToken(u.ID)
	require.NoError(t, err)
	return u.ID, map[string]string{"Authorization": "Bearer " + token}
}

func post(headers map[string]string, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		Headers:        headers,
		Body:           body,
		RequestContext: events.APIGatewayProxyRequestContext{RequestID: "req-1"},
	}
}

func decode[T any](t *testing.T, resp events.APIGatewayProxyResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &v), resp.Body)
	return v
}
