package services

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &recordingNotifier{failWith: assert.AnError}
	breaker := NewBreakerNotifier(inner, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := breaker.NotifyGain(ctx, "user-1", nil)
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	// Open breaker refuses without reaching the collaborator.
	inner.failWith = nil
	err := breaker.NotifyGain(ctx, "user-1", nil)
	require.Error(t, err)
	assert.Empty(t, inner.gains)
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	inner := &recordingNotifier{failWith: assert.AnError}
	breaker := NewBreakerNotifier(inner, 2, 50*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = breaker.NotifyLoss(ctx, "user-1", nil)
	}
	require.Equal(t, gobreaker.StateOpen, breaker.State())

	inner.failWith = nil
	time.Sleep(80 * time.Millisecond)

	// Half-open probe succeeds and the breaker closes.
	err := breaker.NotifyLoss(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
	assert.Equal(t, []string{"user-1"}, inner.losses)
}

func TestBreakerPassesThroughWhileClosed(t *testing.T) {
	inner := &recordingNotifier{}
	breaker := NewBreakerNotifier(inner, 5, time.Minute)
	ctx := context.Background()

	require.NoError(t, breaker.NotifyGain(ctx, "user-1", nil))
	require.NoError(t, breaker.NotifyReset(ctx, "user-1", "admin-1", nil))
	require.NoError(t, breaker.NotifyLevelChange(ctx, "user-1", nil))

	assert.Equal(t, gobreaker.StateClosed, breaker.State())
	assert.Equal(t, []string{"user-1"}, inner.gains)
	assert.Equal(t, []string{"admin-1"}, inner.resetAdmins)
}
