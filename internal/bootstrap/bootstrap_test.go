package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	var o options
	for _, opt := range []Option{WithCipher(), WithQuota()} {
		opt(&o)
	}
	assert.Equal(t, options{cipher: true, quota: true}, o)
}

func TestNew_ConfigErrors(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		h, logger, err := New(context.Background())
		require.Error(t, err)
		assert.ErrorContains(t, err, "DATABASE_URL")
		assert.Nil(t, h)
		assert.Nil(t, logger)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/therma?sslmode=disable")
		t.Setenv("LOG_LEVEL", "chatty")

		_, logger, err := New(context.Background())
		require.Error(t, err)
		assert.Nil(t, logger)
	})
}
