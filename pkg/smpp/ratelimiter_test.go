package smpp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketRateLimiterAdmitsWithinBurst(t *testing.T) {
	l := NewTokenBucketRateLimiter(100, 5, time.Second, NopLogger{})
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
}

func TestTokenBucketRateLimiterTimesOutUnderDelayForTokens(t *testing.T) {
	// send_rate of 1/sec with no burst capacity means the second
	// Acquire must wait roughly a second; a 20ms delay_for_tokens
	// budget cannot cover that wait.
	l := NewTokenBucketRateLimiter(1, 1, 20*time.Millisecond, NopLogger{})
	require.NoError(t, l.Acquire(context.Background()))

	err := l.Acquire(context.Background())
	require.ErrorIs(t, err, ErrRateLimitTimeout)
}

func TestTokenBucketRateLimiterDefaultsMaxTokensToSendRate(t *testing.T) {
	l := NewTokenBucketRateLimiter(50, 0, 0, nil)
	require.Equal(t, 50.0, l.sendRate)
	require.Equal(t, 50, l.limiter.Burst())
	require.Equal(t, DefaultDelayForTokens, l.delayForTokens)
}
