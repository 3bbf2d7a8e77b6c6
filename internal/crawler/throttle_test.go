package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_SkipsFirstWait(t *testing.T) {
	throttle := NewThrottle(250 * time.Millisecond)

	var slept []time.Duration
	throttle.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, throttle.Wait(ctx))
	}

	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}, slept)
}

func TestThrottle_ZeroInterval(t *testing.T) {
	throttle := NewThrottle(0)
	throttle.sleep = func(context.Context, time.Duration) error {
		t.Fatal("zero interval must not sleep")
		return nil
	}

	for i := 0; i < 3; i++ {
		assert.NoError(t, throttle.Wait(context.Background()))
	}
}

func TestThrottle_RealSleep(t *testing.T) {
	throttle := NewThrottle(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, throttle.Wait(ctx))
	assert.Less(t, time.Since(start), 30*time.Millisecond)

	require.NoError(t, throttle.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestThrottle_Canceled(t *testing.T) {
	throttle := NewThrottle(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, throttle.Wait(ctx))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := throttle.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	// Already canceled
	assert.ErrorIs(t, throttle.Wait(ctx), context.Canceled)
}
