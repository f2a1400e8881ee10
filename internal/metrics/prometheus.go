// Package metrics adapts the smpp.MetricsCollector contract onto
// Prometheus client types.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaysms/smppclient/pkg/smpp"
)

// PrometheusCollector implements smpp.MetricsCollector over the
// client-relevant series: submitted/delivered SMS counts, throttle
// and rate-limit-wait counts, dispatch rate, and session state.
type PrometheusCollector struct {
	registry *prometheus.Registry

	smsSubmittedTotal  *prometheus.CounterVec
	smsDeliveredTotal  *prometheus.CounterVec
	throttledTotal     *prometheus.CounterVec
	rateLimitWaitTotal *prometheus.CounterVec

	dispatchRate *prometheus.GaugeVec
	sessionState *prometheus.GaugeVec

	mu     sync.RWMutex
	server *http.Server
}

// NewPrometheusCollector builds a collector registered with a private
// registry and, if port > 0, serves /metrics on that port.
func NewPrometheusCollector(port int) *PrometheusCollector {
	registry := prometheus.NewRegistry()
	c := &PrometheusCollector{registry: registry}

	c.smsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: smpp.MetricSMSSubmittedTotal,
		Help: "Total number of submit_sm jobs sent to the SMSC",
	}, []string{})

	c.smsDeliveredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: smpp.MetricSMSDeliveredTotal,
		Help: "Total number of delivery receipts correlated back to a log_id",
	}, []string{})

	c.throttledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: smpp.MetricThrottledTotal,
		Help: "Total number of ESME_RTHROTTLED/ESME_RMSGQFUL responses observed",
	}, []string{})

	c.rateLimitWaitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: smpp.MetricRateLimitWaitTotal,
		Help: "Total number of rate limiter waits that timed out before a send",
	}, []string{})

	c.dispatchRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: smpp.MetricDispatchRate,
		Help: "Most recently observed outbound PDUs per second",
	}, []string{})

	c.sessionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: smpp.MetricSessionState,
		Help: "Current session state, as smpp.SessionState's integer value",
	}, []string{})

	registry.MustRegister(
		c.smsSubmittedTotal,
		c.smsDeliveredTotal,
		c.throttledTotal,
		c.rateLimitWaitTotal,
		c.dispatchRate,
		c.sessionState,
	)

	if port > 0 {
		c.startServer(port)
	}
	return c
}

func (c *PrometheusCollector) IncCounter(name string, labels map[string]string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case smpp.MetricSMSSubmittedTotal:
		c.smsSubmittedTotal.With(prometheus.Labels{}).Inc()
	case smpp.MetricSMSDeliveredTotal:
		c.smsDeliveredTotal.With(prometheus.Labels{}).Inc()
	case smpp.MetricThrottledTotal:
		c.throttledTotal.With(prometheus.Labels{}).Inc()
	case smpp.MetricRateLimitWaitTotal:
		c.rateLimitWaitTotal.With(prometheus.Labels{}).Inc()
	}
	_ = labels
}

func (c *PrometheusCollector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case smpp.MetricDispatchRate:
		c.dispatchRate.With(prometheus.Labels{}).Set(value)
	case smpp.MetricSessionState:
		c.sessionState.With(prometheus.Labels{}).Set(value)
	}
	_ = labels
}

// ObserveHistogram is unused by any of this client's current metrics
// but is required by smpp.MetricsCollector; kept as a no-op rather
// than dropping the method, since a future latency series would reuse
// this same plumbing.
func (c *PrometheusCollector) ObserveHistogram(name string, value float64, labels map[string]string) {}

func (c *PrometheusCollector) startServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	c.server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// No logger reference here; a listen failure is discarded and
			// /metrics is simply not served. Client.Run does not see it.
		}
	}()
}

// Stop shuts down the metrics HTTP server, if one was started.
func (c *PrometheusCollector) Stop() error {
	if c.server != nil {
		return c.server.Close()
	}
	return nil
}
