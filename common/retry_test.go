package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	r := Retry{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return fmt.Errorf("status 503: %w", ErrRetryable)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPermanentErrorIsNotRetried(t *testing.T) {
	r := Retry{MaxAttempts: 5, BaseDelay: time.Millisecond}
	permanent := errors.New("bad request")
	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	r := Retry{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("status 429: %w", ErrRetryable)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryable)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryHonorsContext(t *testing.T) {
	r := Retry{MaxAttempts: 10, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.Do(ctx, "op", func(ctx context.Context) error {
		calls++
		cancel()
		return fmt.Errorf("timeout: %w", ErrRetryable)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryableStatus(t *testing.T) {
	cases := map[int]bool{200: false, 400: false, 404: false, 429: true, 500: true, 503: true}
	for code, want := range cases {
		assert.Equal(t, want, IsRetryableStatus(code), "status %d", code)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	r := Retry{BaseDelay: time.Second, MaxDelay: 4 * time.Second}
	for attempt := 1; attempt <= 8; attempt++ {
		d := r.backoff(attempt)
		assert.LessOrEqual(t, d, 5*time.Second)
		assert.Greater(t, d, time.Duration(0))
	}
}
