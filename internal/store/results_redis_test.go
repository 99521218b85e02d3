package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live Redis; set TEST_REDIS_URL to run them.
func newTestStore(t *testing.T) *RedisResults {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	s, err := NewRedisResults(url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisResults_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, s.Save(ctx, id, []byte(`{"totalFound":1}`), time.Now()))

	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalFound":1}`, string(got))

	recent, err := s.Recent(ctx, 50)
	require.NoError(t, err)
	assert.Contains(t, recent, id)
}

func TestRedisResults_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisResults_BadURL(t *testing.T) {
	_, err := NewRedisResults("not-a-url", time.Minute)
	assert.Error(t, err)
}
