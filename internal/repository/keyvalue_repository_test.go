package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type sample struct {
	Name string `json:"name"`
}

func TestMemoryKeyValueRepositoryExpiry(t *testing.T) {
	now := time.Date(2025, 12, 29, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryKeyValueRepository().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "session:1", sample{Name: "a"}, time.Minute))
	require.NoError(t, repo.Set(ctx, "forever", sample{Name: "b"}, 0))

	var got sample
	require.NoError(t, repo.Get(ctx, "session:1", &got))
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, 2, repo.Len())

	now = now.Add(time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "session:1", &got), appErrors.ErrNotFound)
	assert.Equal(t, 1, repo.Len())
	require.NoError(t, repo.Get(ctx, "forever", &got))
}

func TestMemoryKeyValueRepositoryTakeIsSingleUse(t *testing.T) {
	repo := NewMemoryKeyValueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "otp:a@b.c", sample{Name: "123456"}, time.Minute))

	var got sample
	require.NoError(t, repo.Take(ctx, "otp:a@b.c", &got))
	assert.Equal(t, "123456", got.Name)
	assert.ErrorIs(t, repo.Take(ctx, "otp:a@b.c", &got), ErrKeyNotFound)
}

func TestMemoryKeyValueRepositoryDelete(t *testing.T) {
	repo := NewMemoryKeyValueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "k", sample{}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "k"))
	require.NoError(t, repo.Delete(ctx, "k"))
	assert.Zero(t, repo.Len())
}

func TestRedisKeyValueRepositoryWithoutClient(t *testing.T) {
	repo := NewRedisKeyValueRepository(nil, nil)
	ctx := context.Background()

	var got sample
	assert.ErrorIs(t, repo.Get(ctx, "k", &got), ErrKeyNotFound)
	assert.ErrorIs(t, repo.Take(ctx, "k", &got), ErrKeyNotFound)
	assert.ErrorIs(t, repo.Set(ctx, "k", got, time.Second), appErrors.ErrNotConfigured)
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.NoError(t, repo.Close())
}
