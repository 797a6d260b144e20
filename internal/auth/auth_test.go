package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermabackend/internal/clock"
)

const secret = "test-secret-0123456789"

func TestManager_RoundTrip(t *testing.T) {
	m, err := NewManager(secret, time.Hour, clock.NewFixed(time.Now()))
	require.NoError(t, err)

	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	claims, err := m.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestManager_Expired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := NewManager(secret, time.Hour, clock.NewFixed(issued))
	require.NoError(t, err)
	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	later, err := NewManager(secret, time.Hour, clock.NewFixed(issued.Add(2*time.Hour)))
	require.NoError(t, err)
	_, err = later.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_WrongSecret(t *testing.T) {
	c := clock.NewFixed(time.Now())
	a, err := NewManager(secret, time.Hour, c)
	require.NoError(t, err)
	b, err := NewManager("another-secret-9876543210", time.Hour, c)
	require.NoError(t, err)

	token, err := a.GenerateToken("user-1")
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Rejects(t *testing.T) {
	m, err := NewManager(secret, time.Hour, nil)
	require.NoError(t, err)

	for _, token := range []string{"", "Bearer ", "not.a.jwt"} {
		_, err := m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestNewManager_ShortSecret(t *testing.T) {
	_, err := NewManager("short", time.Hour, nil)
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "correct horse battery"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrBadPassword)
}
