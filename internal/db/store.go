// Package db is the PostgreSQL data-access layer: users, mood check-ins,
// journal entries, activities, garden plants and notifications.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/thermabackend/internal/models"
	"github.com/thermabackend/internal/wellness"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

const uniqueViolation = "23505"

// Store runs queries against a *sql.DB.
type Store struct {
	db *sql.DB
}

// NewStore wraps conn.
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// CreateUser inserts a user on the free tier together with a seedling plant.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, timezone string, now time.Time) (models.User, error) {
	user := models.User{
		ID:                uuid.NewString(),
		Email:             email,
		Password:          passwordHash,
		SubscriptionTier:  models.TierFree,
		Timezone:          timezone,
		TrackedActivities: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password, subscription_tier, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		user.ID, user.Email, user.Password, user.SubscriptionTier, user.Timezone, now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	seed := wellness.NewPlant()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO plants (user_id, health, growth_stage, updated_at) VALUES ($1, $2, $3, $4)",
		user.ID, seed.Health, seed.GrowthStage, now,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("insert plant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, fmt.Errorf("commit: %w", err)
	}
	return user, nil
}

const userColumns = "id, email, password, subscription_tier, timezone, tracked_activities, created_at, updated_at"

// GetUser loads a user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", userID)
	return scanUser(row)
}

// GetUserByEmail loads a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.SubscriptionTier, &u.Timezone,
		pq.Array(&u.TrackedActivities), &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// UpdateProfile sets the user's timezone and tracked activity types.
func (s *Store) UpdateProfile(ctx context.Context, userID, timezone string, activities []string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET timezone = $2, tracked_activities = $3, updated_at = $4 WHERE id = $1",
		userID, timezone, pq.Array(activities), now,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return expectOne(res)
}

// CreateMoodEntry inserts entry, assigning its ID.
func (s *Store) CreateMoodEntry(ctx context.Context, entry *models.MoodEntry) error {
	entry.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO mood_entries (id, user_id, mood, note, encrypted, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		entry.ID, entry.UserID, entry.Mood, entry.Note, entry.Encrypted, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mood entry: %w", err)
	}
	return nil
}

// ListMoodEntries returns entries in [from, to), newest first.
func (s *Store) ListMoodEntries(ctx context.Context, userID string, from, to time.Time) ([]models.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, mood, note, encrypted, created_at FROM mood_entries
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query mood entries: %w", err)
	}
	defer rows.Close()

	var entries []models.MoodEntry
	for rows.Next() {
		var e models.MoodEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Mood, &e.Note, &e.Encrypted, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CreateJournalEntry inserts entry, assigning its ID.
func (s *Store) CreateJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	entry.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (id, user_id, content, mood, tags, insight, encrypted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.UserID, entry.Content, entry.Mood, pq.Array(entry.Tags), entry.Insight,
		entry.Encrypted, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// ListJournalEntries returns entries in [from, to), newest first.
func (s *Store) ListJournalEntries(ctx context.Context, userID string, from, to time.Time) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, content, mood, tags, insight, encrypted, created_at, updated_at FROM journal_entries
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &e.Mood, pq.Array(&e.Tags), &e.Insight,
			&e.Encrypted, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CreateActivity inserts a, assigning its ID.
func (s *Store) CreateActivity(ctx context.Context, a *models.Activity) error {
	a.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO activities (id, user_id, activity_type, completed, created_at) VALUES ($1, $2, $3, $4, $5)",
		a.ID, a.UserID, a.ActivityType, a.Completed, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivities returns activities in [from, to), newest first.
func (s *Store) ListActivities(ctx context.Context, userID string, from, to time.Time) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, activity_type, completed, created_at FROM activities
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.Completed, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetPlant loads the user's plant.
func (s *Store) GetPlant(ctx context.Context, userID string) (models.Plant, error) {
	p := models.Plant{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		"SELECT health, growth_stage, updated_at FROM plants WHERE user_id = $1", userID,
	).Scan(&p.Health, &p.GrowthStage, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Plant{}, ErrNotFound
	}
	if err != nil {
		return models.Plant{}, fmt.Errorf("get plant: %w", err)
	}
	return p, nil
}

// WaterPlant applies one watering under a row lock so concurrent waterings
// never lose an increment.
func (s *Store) WaterPlant(ctx context.Context, userID string, now time.Time) (models.Plant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Plant{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var state wellness.PlantState
	err = tx.QueryRowContext(ctx,
		"SELECT health, growth_stage FROM plants WHERE user_id = $1 FOR UPDATE", userID,
	).Scan(&state.Health, &state.GrowthStage)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Plant{}, ErrNotFound
	}
	if err != nil {
		return models.Plant{}, fmt.Errorf("lock plant: %w", err)
	}

	next := state.Water()
	_, err = tx.ExecContext(ctx,
		"UPDATE plants SET health = $2, growth_stage = $3, updated_at = $4 WHERE user_id = $1",
		userID, next.Health, next.GrowthStage, now,
	)
	if err != nil {
		return models.Plant{}, fmt.Errorf("update plant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Plant{}, fmt.Errorf("commit: %w", err)
	}
	return models.Plant{UserID: userID, Health: next.Health, GrowthStage: next.GrowthStage, UpdatedAt: now}, nil
}

// ListReminderCandidates returns every user with a mood check-in since
// since, along with those check-in times (newest first) and the time of
// their latest notification of kind.
func (s *Store) ListReminderCandidates(ctx context.Context, since time.Time, kind string) ([]models.ReminderCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.timezone, m.created_at,
			(SELECT MAX(n.created_at) FROM notifications n WHERE n.user_id = u.id AND n.kind = $2)
		FROM users u
		JOIN mood_entries m ON m.user_id = u.id
		WHERE m.created_at >= $1 ORDER BY u.id, m.created_at DESC`,
		since, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("query reminder candidates: %w", err)
	}
	defer rows.Close()

	var out []models.ReminderCandidate
	for rows.Next() {
		var (
			userID, tz string
			at         time.Time
			reminded   sql.NullTime
		)
		if err := rows.Scan(&userID, &tz, &at, &reminded); err != nil {
			return nil, fmt.Errorf("scan reminder candidate: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].UserID != userID {
			out = append(out, models.ReminderCandidate{UserID: userID, Timezone: tz, LastReminded: reminded.Time})
		}
		last := &out[len(out)-1]
		last.MoodTimes = append(last.MoodTimes, at)
	}
	return out, rows.Err()
}

// CreateNotification inserts n, assigning its ID.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, kind, message, created_at) VALUES ($1, $2, $3, $4, $5)",
		n.ID, n.UserID, n.Kind, n.Message, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
