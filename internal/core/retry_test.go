package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{MaxRetries: 3, Delay: time.Millisecond}, nil, "op",
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), RetryPolicy{MaxRetries: 2, Delay: time.Millisecond}, nil, "op",
		func(context.Context) error {
			calls++
			return boom
		})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls, "one attempt plus two retries")
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("bad request")
	err := Retry(context.Background(), RetryPolicy{MaxRetries: 5, Delay: time.Millisecond}, nil, "op",
		func(context.Context) error {
			calls++
			return Permanent(boom)
		})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, RetryPolicy{MaxRetries: 5, Delay: time.Hour}, nil, "op",
		func(context.Context) error {
			calls++
			cancel()
			return errors.New("transient")
		})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	p := RetryPolicy{Delay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.backoff(1))
	assert.Equal(t, 300*time.Millisecond, p.backoff(2))
	assert.Equal(t, time.Duration(0), RetryPolicy{}.backoff(3))
}

func TestErrorTypes(t *testing.T) {
	err := &StorageError{Op: "store", Err: ErrDuplicate}
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "storage store: duplicate document", err.Error())

	var fe *FileError
	wrapped := error(&FileError{Path: "a.txt", Err: ErrFileTooLarge})
	require.ErrorAs(t, wrapped, &fe)
	assert.ErrorIs(t, wrapped, ErrFileTooLarge)

	assert.ErrorIs(t, &EmbeddingError{Op: "generate", Err: context.DeadlineExceeded}, context.DeadlineExceeded)
}
