package smpp

import (
	"sync"
	"time"
)

// ThrottleHandler tracks throttle-response rate and decides whether
// the dispatcher should pause outbound traffic (spec.md §4.5, C5).
type ThrottleHandler interface {
	Throttled()
	NotThrottled()
	ThrottleDelay() time.Duration
	AllowRequest() bool
}

// DefaultThrottleDenyAtPercent, DefaultThrottleSampleSize, and
// DefaultThrottleSamplingPeriod use spec.md §8 scenario 5's figures
// (50% of 60 responses in a 180s window) as always-on defaults.
const (
	DefaultThrottleSampleSize      = 60
	DefaultThrottleDenyAtPercent   = 50.0
	DefaultThrottleSamplingPeriod  = 180 * time.Second
	DefaultThrottleMinDelay        = 1 * time.Second
	DefaultThrottleMaxDelay        = 60 * time.Second
)

// SlidingWindowThrottleHandler is the default ThrottleHandler: it
// records each response outcome in a sliding window of
// sampling_period seconds. Once the window holds at least sample_size
// observations and the throttled share exceeds deny_request_at,
// AllowRequest returns false until the share drops again (spec.md
// §4.5, §8 invariant 8). Grounded on the pack's SlidingWindowLimiter
// shape (map-free here since only one stream of outcomes exists per
// client, not per-key).
type SlidingWindowThrottleHandler struct {
	mu sync.Mutex

	samplingPeriod time.Duration
	sampleSize     int
	denyAtPercent  float64

	events []throttleEvent
}

type throttleEvent struct {
	at        time.Time
	throttled bool
}

// NewSlidingWindowThrottleHandler builds a handler with the given
// sampling period, minimum sample size, and deny threshold (a
// percentage in [0, 100]). Non-positive arguments fall back to the
// package defaults.
func NewSlidingWindowThrottleHandler(samplingPeriod time.Duration, sampleSize int, denyAtPercent float64) *SlidingWindowThrottleHandler {
	if samplingPeriod <= 0 {
		samplingPeriod = DefaultThrottleSamplingPeriod
	}
	if sampleSize <= 0 {
		sampleSize = DefaultThrottleSampleSize
	}
	if denyAtPercent <= 0 {
		denyAtPercent = DefaultThrottleDenyAtPercent
	}
	return &SlidingWindowThrottleHandler{
		samplingPeriod: samplingPeriod,
		sampleSize:     sampleSize,
		denyAtPercent:  denyAtPercent,
	}
}

func (h *SlidingWindowThrottleHandler) record(throttled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, throttleEvent{at: time.Now(), throttled: throttled})
	h.prune()
}

// Throttled records an ESME_RTHROTTLED or ESME_RMSGQFUL response
// (spec.md §9 open question: the source folds both into one signal
// and this implementation follows that choice).
func (h *SlidingWindowThrottleHandler) Throttled() { h.record(true) }

// NotThrottled records any non-throttle response outcome.
func (h *SlidingWindowThrottleHandler) NotThrottled() { h.record(false) }

// prune drops events older than samplingPeriod. Callers must hold mu.
func (h *SlidingWindowThrottleHandler) prune() {
	cutoff := time.Now().Add(-h.samplingPeriod)
	i := 0
	for i < len(h.events) && h.events[i].at.Before(cutoff) {
		i++
	}
	h.events = h.events[i:]
}

// AllowRequest returns false once the window holds at least
// sample_size observations and the throttled share exceeds
// deny_request_at.
func (h *SlidingWindowThrottleHandler) AllowRequest() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prune()

	if len(h.events) < h.sampleSize {
		return true
	}
	throttledCount := 0
	for _, e := range h.events {
		if e.throttled {
			throttledCount++
		}
	}
	share := float64(throttledCount) / float64(len(h.events)) * 100
	return share <= h.denyAtPercent
}

// ThrottleDelay returns how long the dispatcher should wait before
// re-checking AllowRequest. The delay grows with the current
// throttled share within [DefaultThrottleMinDelay, DefaultThrottleMaxDelay].
func (h *SlidingWindowThrottleHandler) ThrottleDelay() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prune()

	if len(h.events) == 0 {
		return DefaultThrottleMinDelay
	}
	throttledCount := 0
	for _, e := range h.events {
		if e.throttled {
			throttledCount++
		}
	}
	share := float64(throttledCount) / float64(len(h.events))
	span := DefaultThrottleMaxDelay - DefaultThrottleMinDelay
	return DefaultThrottleMinDelay + time.Duration(share*float64(span))
}
