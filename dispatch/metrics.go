/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-crawldispatch/internal/libinfo"
)

// Request outcomes used as metric label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
	OutcomeFatal    = "fatal"
)

// MetricsCollector collects metrics of the dispatcher.
type MetricsCollector interface {
	// IncRequests increments the number of finished requests with the given outcome.
	IncRequests(outcome string)

	// ObserveRequestDuration observes the elapsed time of a delivered request.
	ObserveRequestDuration(outcome string, elapsed time.Duration)

	// ObserveStartDelay observes the delay before sending of a scheduled request.
	ObserveStartDelay(delay time.Duration)

	// SetInFlight sets the number of requests that are in flight.
	SetInFlight(n int)

	// SetPending sets the number of queued and in-flight requests.
	SetPending(n int)

	// SetBackoff sets the current backoff delay.
	SetBackoff(backoff time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	// The module version label is always added.
	ConstLabels prometheus.Labels

	// DurationBuckets is a list of buckets for the request duration and start delay histograms.
	DurationBuckets []float64
}

// DefaultDurationBuckets is used when PrometheusMetricsOpts.DurationBuckets is empty.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// PrometheusMetrics represents Prometheus metrics of the dispatcher.
type PrometheusMetrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDurations *prometheus.HistogramVec
	StartDelays      prometheus.Histogram
	InFlight         prometheus.Gauge
	Pending          prometheus.Gauge
	Backoff          prometheus.Gauge
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusVersionLabel(opts.ConstLabels)
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = DefaultDurationBuckets
	}
	return &PrometheusMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "crawl_requests_total",
			Help:        "Number of finished crawler requests by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		RequestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "crawl_request_duration_seconds",
			Help:        "A histogram of the delivered crawler requests durations (including reading of the body).",
			ConstLabels: constLabels,
			Buckets:     buckets,
		}, []string{"outcome"}),
		StartDelays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "crawl_request_start_delay_seconds",
			Help:        "A histogram of the delays before sending crawler requests.",
			ConstLabels: constLabels,
			Buckets:     buckets,
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "crawl_requests_in_flight",
			Help:        "Number of crawler requests that are in flight.",
			ConstLabels: constLabels,
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "crawl_requests_pending",
			Help:        "Number of queued and not yet delivered crawler requests.",
			ConstLabels: constLabels,
		}),
		Backoff: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "crawl_backoff_seconds",
			Help:        "Current backoff delay added before new crawler requests.",
			ConstLabels: constLabels,
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.collectors()...)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range pm.collectors() {
		prometheus.Unregister(c)
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{pm.RequestsTotal, pm.RequestDurations, pm.StartDelays, pm.InFlight, pm.Pending, pm.Backoff}
}

// IncRequests increments the number of finished requests with the given outcome.
func (pm *PrometheusMetrics) IncRequests(outcome string) {
	pm.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequestDuration observes the elapsed time of a delivered request.
func (pm *PrometheusMetrics) ObserveRequestDuration(outcome string, elapsed time.Duration) {
	pm.RequestDurations.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveStartDelay observes the delay before sending of a scheduled request.
func (pm *PrometheusMetrics) ObserveStartDelay(delay time.Duration) {
	pm.StartDelays.Observe(delay.Seconds())
}

// SetInFlight sets the number of requests that are in flight.
func (pm *PrometheusMetrics) SetInFlight(n int) {
	pm.InFlight.Set(float64(n))
}

// SetPending sets the number of queued and in-flight requests.
func (pm *PrometheusMetrics) SetPending(n int) {
	pm.Pending.Set(float64(n))
}

// SetBackoff sets the current backoff delay.
func (pm *PrometheusMetrics) SetBackoff(backoff time.Duration) {
	pm.Backoff.Set(backoff.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) IncRequests(string)                           {}
func (disabledMetrics) ObserveRequestDuration(string, time.Duration) {}
func (disabledMetrics) ObserveStartDelay(time.Duration)              {}
func (disabledMetrics) SetInFlight(int)                              {}
func (disabledMetrics) SetPending(int)                               {}
func (disabledMetrics) SetBackoff(time.Duration)                     {}
