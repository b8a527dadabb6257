package jobcontext

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxRetries int) context.Context {
	return WithRetryPolicy(context.Background(), RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Millisecond})
}

func TestJobEnd_RetriesTransientErrors(t *testing.T) {
	runID := uuid.New()
	ctx, cancel := JobBegin(fastPolicy(3), runID, "lesson-1", 2)
	defer cancel()

	var attempts []int
	err := JobEnd(ctx, func(ctx context.Context) error {
		meta, ok := Metadata(ctx)
		require.True(t, ok)
		assert.Equal(t, runID, meta.RunID)
		assert.Equal(t, "lesson-1", meta.TranscriptID)
		assert.Equal(t, 2, meta.WorkerID)
		assert.Equal(t, 3, meta.MaxRetries)
		attempts = append(attempts, meta.Attempt)
		if len(attempts) < 3 {
			return errors.New("read tcp: connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestJobEnd_GivesUpAfterMaxRetries(t *testing.T) {
	ctx, cancel := JobBegin(fastPolicy(2), uuid.New(), "lesson-2", 0)
	defer cancel()

	calls := 0
	err := JobEnd(ctx, func(context.Context) error {
		calls++
		return errors.New("dial tcp: i/o timeout")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
	assert.Equal(t, 2, calls)
}

func TestJobEnd_StopsOnPermanentError(t *testing.T) {
	ctx, cancel := JobBegin(context.Background(), uuid.New(), "lesson-3", 0)
	defer cancel()

	calls := 0
	err := JobEnd(ctx, func(context.Context) error {
		calls++
		return errors.New("duplicate key value violates unique constraint")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestJobEnd_RecoversPanics(t *testing.T) {
	ctx, cancel := JobBegin(context.Background(), uuid.New(), "lesson-4", 0)
	defer cancel()

	err := JobEnd(ctx, func(context.Context) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
}

func TestWithRetryPolicy_FallsBackToDefaults(t *testing.T) {
	ctx, cancel := JobBegin(WithRetryPolicy(context.Background(), RetryPolicy{}), uuid.New(), "lesson-5", 0)
	defer cancel()

	meta, ok := Metadata(ctx)
	require.True(t, ok)
	assert.Equal(t, DefaultRetryPolicy.MaxRetries, meta.MaxRetries)
	assert.Len(t, meta.Fields(), 5)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.False(t, IsRetryableError(nil))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(1, time.Second))
	assert.Equal(t, 4*time.Second, retryDelay(3, time.Second))
	assert.Equal(t, maxDelay, retryDelay(10, time.Second))
	assert.Equal(t, maxDelay, retryDelay(100, time.Second))
}
