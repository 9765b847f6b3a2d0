package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy() *Policy {
	return &Policy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsImmediately(t *testing.T) {
	r := New(fastPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	r := New(fastPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	r := New(fastPolicy(), zap.NewNop())

	boom := errors.New("boom")
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls) // first call plus 3 retries
}

func TestDo_RetryIfStopsEarly(t *testing.T) {
	p := fastPolicy()
	p.RetryIf = func(error) bool { return false }
	r := New(p, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return errors.New("terminal")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryObservesAttempts(t *testing.T) {
	var attempts []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}
	r := New(p, zap.NewNop())

	_ = r.Do(context.Background(), func() error { return errors.New("always") })

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDo_ContextCancelAbortsWait(t *testing.T) {
	p := fastPolicy()
	p.InitialDelay = time.Minute
	p.MaxDelay = time.Minute
	r := New(p, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func() error { return errors.New("fail") })
	}()
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("retryer did not honor cancellation")
	}
}

func TestDelay_GrowsExponentially(t *testing.T) {
	p := &Policy{InitialDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2.0}

	assert.Equal(t, time.Second, Delay(p, 1))
	assert.Equal(t, 2*time.Second, Delay(p, 2))
	assert.Equal(t, 4*time.Second, Delay(p, 3))
}

func TestDelay_CapsAtMax(t *testing.T) {
	p := &Policy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2.0}

	assert.Equal(t, 5*time.Second, Delay(p, 10))
}

func TestDelay_JitterStaysInBounds(t *testing.T) {
	p := &Policy{InitialDelay: 4 * time.Second, MaxDelay: time.Minute, Multiplier: 2.0, Jitter: true}

	for i := 0; i < 100; i++ {
		d := Delay(p, 2)
		assert.GreaterOrEqual(t, d, 4*time.Second) // clamped to the initial delay
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}
