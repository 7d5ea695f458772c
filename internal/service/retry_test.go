package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/plantpal/internal/repository"
)

func TestRetry_RecoversFromUnavailableStore(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("%w: timeout", repository.ErrStoreUnavailable)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	err := retryErr(context.Background(), RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return repository.ErrStoreUnavailable
	})
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, translate(err), ErrStoreUnavailable)
}

func TestRetry_DoesNotRepeatOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retryErr(context.Background(), RetryPolicy{Attempts: 5, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryErr(ctx, RetryPolicy{Attempts: 5, Backoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return repository.ErrStoreUnavailable
	})
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.Equal(t, 1, calls)
}

func TestStoreUnavailable_Surfaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "v")

	db, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = f.feed.GetFeed(ctx, "v", 10, "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
