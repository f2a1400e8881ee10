package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialGrowsWithinJitterBounds(t *testing.T) {
	e := &Exponential{Initial: 10 * time.Millisecond, Max: time.Second, Factor: 2, JitterPercent: 0.2}

	first := e.Next()
	require.InDelta(t, 10*time.Millisecond, first, float64(2*time.Millisecond))

	second := e.Next()
	require.InDelta(t, 20*time.Millisecond, second, float64(4*time.Millisecond))
}

func TestExponentialCapsAtMax(t *testing.T) {
	e := &Exponential{Initial: time.Second, Max: 2 * time.Second, Factor: 10, JitterPercent: 0}
	e.Next()
	e.Next()
	capped := e.Next()
	require.LessOrEqual(t, capped, 2*time.Second)
}

func TestExponentialResetRestartsFromInitial(t *testing.T) {
	e := &Exponential{Initial: 10 * time.Millisecond, Max: time.Second, Factor: 2, JitterPercent: 0}
	e.Next()
	e.Next()
	e.Reset()
	afterReset := e.Next()
	require.InDelta(t, 10*time.Millisecond, afterReset, float64(time.Millisecond))
}

func TestNewExponentialUsesPackageDefaults(t *testing.T) {
	e := NewExponential()
	require.Equal(t, DefaultInitial, e.Initial)
	require.Equal(t, DefaultMax, e.Max)
}
