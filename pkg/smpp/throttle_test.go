package smpp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottleHandlerAllowsBelowSampleSize(t *testing.T) {
	h := NewSlidingWindowThrottleHandler(time.Minute, 10, 50)
	for i := 0; i < 9; i++ {
		h.Throttled()
	}
	require.True(t, h.AllowRequest(), "fewer than sample_size observations must not deny")
}

func TestThrottleHandlerDeniesAboveThreshold(t *testing.T) {
	h := NewSlidingWindowThrottleHandler(time.Minute, 10, 50)
	for i := 0; i < 6; i++ {
		h.Throttled()
	}
	for i := 0; i < 4; i++ {
		h.NotThrottled()
	}
	require.False(t, h.AllowRequest())
}

func TestThrottleHandlerAllowsAtOrBelowThreshold(t *testing.T) {
	h := NewSlidingWindowThrottleHandler(time.Minute, 10, 50)
	for i := 0; i < 5; i++ {
		h.Throttled()
	}
	for i := 0; i < 5; i++ {
		h.NotThrottled()
	}
	require.True(t, h.AllowRequest())
}

func TestThrottleHandlerPrunesOldEvents(t *testing.T) {
	h := NewSlidingWindowThrottleHandler(5*time.Millisecond, 1, 0)
	h.Throttled()
	require.False(t, h.AllowRequest())
	time.Sleep(20 * time.Millisecond)
	require.True(t, h.AllowRequest(), "events older than sampling_period must be pruned")
}

func TestThrottleDelayGrowsWithShare(t *testing.T) {
	h := NewSlidingWindowThrottleHandler(time.Minute, 1, 0)
	allThrottled := NewSlidingWindowThrottleHandler(time.Minute, 1, 0)
	for i := 0; i < 10; i++ {
		h.NotThrottled()
		allThrottled.Throttled()
	}
	require.Less(t, h.ThrottleDelay(), allThrottled.ThrottleDelay())
}
