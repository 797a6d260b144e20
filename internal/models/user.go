package models

import (
	"time"

	"github.com/thermabackend/internal/wellness"
)

// SubscriptionTier gates premium analytics and insight limits.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
)

// Premium reports whether the tier unlocks paid features.
func (t SubscriptionTier) Premium() bool {
	return t == TierPremium
}

type User struct {
	ID                string           `json:"id"`
	Email             string           `json:"email"`
	Password          string           `json:"-"` // Password is never exposed in JSON
	SubscriptionTier  SubscriptionTier `json:"subscription_tier"`
	Timezone          string           `json:"timezone"`
	TrackedActivities []string         `json:"tracked_activities"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type MoodEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mood      string    `json:"mood"`
	Note      string    `json:"note"`      // PHI - encrypted at rest
	Encrypted bool      `json:"encrypted"` // Track encryption status
	CreatedAt time.Time `json:"created_at"`
}

// Record reduces the entry to what the derivation engine reads.
func (m MoodEntry) Record() wellness.MoodRecord {
	return wellness.MoodRecord{Mood: wellness.ParseMood(m.Mood), CreatedAt: m.CreatedAt}
}

// HIPAA-compliant journal entry; content and tags are PHI.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"` // PHI - encrypted at rest
	Mood      string    `json:"mood"`
	Tags      []string  `json:"tags"` // PHI - encrypted at rest
	Insight   string    `json:"insight,omitempty"`
	Encrypted bool      `json:"encrypted"` // Track encryption status
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record reduces the entry to what the derivation engine reads.
func (j JournalEntry) Record() wellness.JournalRecord {
	return wellness.JournalRecord{CreatedAt: j.CreatedAt}
}

type Activity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	Completed    bool      `json:"completed"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record reduces the activity to what the derivation engine reads.
func (a Activity) Record() wellness.ActivityRecord {
	return wellness.ActivityRecord{ActivityType: a.ActivityType, Completed: a.Completed, CreatedAt: a.CreatedAt}
}

type Plant struct {
	UserID      string    `json:"user_id"`
	Health      int       `json:"health"`
	GrowthStage int       `json:"growth_stage"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// State returns the plant's health and stage snapshot.
func (p Plant) State() wellness.PlantState {
	return wellness.PlantState{Health: p.Health, GrowthStage: p.GrowthStage}
}

// Notification is an in-app message, e.g. a streak reminder.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ReminderCandidate pairs a user with recent mood check-in times.
type ReminderCandidate struct {
	UserID    string
	Timezone  string
	MoodTimes []time.Time
	// LastReminded is when the user was last sent a reminder, zero if never.
	LastReminded time.Time
}

// MoodRecords converts entries for the derivation engine.
func MoodRecords(entries []MoodEntry) []wellness.MoodRecord {
	out := make([]wellness.MoodRecord, len(entries))
	for i, e := range entries {
		out[i] = e.Record()
	}
	return out
}

// JournalRecords converts entries for the derivation engine.
func JournalRecords(entries []JournalEntry) []wellness.JournalRecord {
	out := make([]wellness.JournalRecord, len(entries))
	for i, e := range entries {
		out[i] = e.Record()
	}
	return out
}

// ActivityRecords converts activities for the derivation engine.
func ActivityRecords(activities []Activity) []wellness.ActivityRecord {
	out := make([]wellness.ActivityRecord, len(activities))
	for i, a := range activities {
		out[i] = a.Record()
	}
	return out
}
