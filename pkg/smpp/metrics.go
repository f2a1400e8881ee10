package smpp

// MetricsCollector is the optional metrics sink the client reports
// through. It is nil-safe: ClientDependencies.Metrics may be left nil,
// in which case the client uses NopMetrics.
type MetricsCollector interface {
	IncCounter(name string, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) IncCounter(name string, labels map[string]string)                  {}
func (NopMetrics) SetGauge(name string, value float64, labels map[string]string)     {}
func (NopMetrics) ObserveHistogram(name string, value float64, labels map[string]string) {}

// Metric name constants reported by the client (SPEC_FULL.md §9).
const (
	MetricSMSSubmittedTotal  = "smpp_client_sms_submitted_total"
	MetricSMSDeliveredTotal  = "smpp_client_sms_delivered_total"
	MetricThrottledTotal     = "smpp_client_throttled_total"
	MetricRateLimitWaitTotal = "smpp_client_rate_limit_waits_total"
	MetricDispatchRate       = "smpp_client_dispatch_rate"
	MetricSessionState       = "smpp_client_session_state"
)
