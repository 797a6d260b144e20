// Package api implements the API Gateway handlers behind each lambda. Every
// handler returns a proxy response and a nil error; failures are reported as
// JSON ErrorResponse bodies with a matching status code.
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/thermabackend/internal/auth"
	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/config"
	"github.com/thermabackend/internal/logging"
	"github.com/thermabackend/internal/models"
	"github.com/thermabackend/internal/quota"
)

// Store is the data access the handlers need. *db.Store implements it.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash, timezone string, now time.Time) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, userID, timezone string, activities []string, now time.Time) error

	CreateMoodEntry(ctx context.Context, entry *models.MoodEntry) error
	ListMoodEntries(ctx context.Context, userID string, from, to time.Time) ([]models.MoodEntry, error)
	CreateJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	ListJournalEntries(ctx context.Context, userID string, from, to time.Time) ([]models.JournalEntry, error)
	CreateActivity(ctx context.Context, a *models.Activity) error
	ListActivities(ctx context.Context, userID string, from, to time.Time) ([]models.Activity, error)

	GetPlant(ctx context.Context, userID string) (models.Plant, error)
	WaterPlant(ctx context.Context, userID string, now time.Time) (models.Plant, error)

	ListReminderCandidates(ctx context.Context, since time.Time, kind string) ([]models.ReminderCandidate, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Idempotency runs a handler at most once per request key.
type Idempotency interface {
	ProcessIdempotentRequest(ctx context.Context, userID, endpoint, clientKey, requestBody string, handler func() (interface{}, error)) (json.RawMessage, error)
}

// Cipher protects PHI at rest.
type Cipher interface {
	EncryptPHI(ctx context.Context, plaintext string) (string, error)
	EncryptPHIArray(ctx context.Context, plaintexts []string) ([]string, error)
	DecryptPHI(ctx context.Context, ciphertext string) (string, error)
	DecryptPHIArray(ctx context.Context, ciphertexts []string) ([]string, error)
}

// Quota meters generated journal insights.
type Quota interface {
	CheckInsightQuota(ctx context.Context, userID string, tier models.SubscriptionTier, now time.Time) (*quota.QuotaResult, error)
	ReserveInsight(ctx context.Context, userID string, tier models.SubscriptionTier, now time.Time) (*quota.QuotaResult, error)
}

// Tokens issues and validates session tokens.
type Tokens interface {
	GenerateToken(userID string) (string, error)
	ValidateToken(token string) (*auth.Claims, error)
}

// Deps are the collaborators of a Handler. Lambdas only set what their
// route uses.
type Deps struct {
	Store       Store
	Idempotency Idempotency
	Cipher      Cipher
	Quota       Quota
	Tokens      Tokens
	Clock       clock.Clock
	Logger      *logging.Logger

	Analytics config.AnalyticsConfig
	// DefaultActivities is the checklist for users who have not picked their own.
	DefaultActivities []string
}

// Handler serves every route.
type Handler struct {
	store       Store
	idempotency Idempotency
	cipher      Cipher
	quota       Quota
	tokens      Tokens
	clock       clock.Clock
	logger      *logging.Logger

	analytics         config.AnalyticsConfig
	defaultActivities []string
}

// New builds a Handler from d.
func New(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = clock.NewReal()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Analytics.WindowDays == 0 {
		d.Analytics = config.AnalyticsConfig{WindowDays: 7, PremiumWindowDays: 90}
	}
	return &Handler{
		store:             d.Store,
		idempotency:       d.Idempotency,
		cipher:            d.Cipher,
		quota:             d.Quota,
		tokens:            d.Tokens,
		clock:             d.Clock,
		logger:            d.Logger,
		analytics:         d.Analytics,
		defaultActivities: d.DefaultActivities,
	}
}

// trackedActivities returns the user's checklist, or the default one.
func (h *Handler) trackedActivities(u models.User) []string {
	if len(u.TrackedActivities) > 0 {
		return u.TrackedActivities
	}
	return h.defaultActivities
}
