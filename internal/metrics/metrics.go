package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll results
const (
	PollApplied = "applied"
	PollStale   = "stale"
	PollFailed  = "failed"
)

// Collector holds the client's Prometheus metrics on a private registry
type Collector struct {
	registry    *prometheus.Registry
	Polls       *prometheus.CounterVec
	Jobs        *prometheus.CounterVec
	JobDuration prometheus.Histogram
	Progress    prometheus.Gauge
	Requests    *prometheus.HistogramVec
}

// NewCollector creates and registers all metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vortex",
			Name:      "job_polls_total",
			Help:      "Job status polls by result.",
		}, []string{"result"}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vortex",
			Name:      "jobs_total",
			Help:      "Jobs by terminal outcome.",
		}, []string{"outcome"}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vortex",
			Name:      "job_duration_seconds",
			Help:      "Time from submission to terminal outcome.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		Progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vortex",
			Name:      "job_progress_percent",
			Help:      "Progress of the tracked job.",
		}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vortex",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	c.registry.MustRegister(c.Polls, c.Jobs, c.JobDuration, c.Progress, c.Requests)
	return c
}

// Handler exposes the registry over HTTP
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObservePoll counts a poll result. Safe on a nil collector.
func (c *Collector) ObservePoll(result string) {
	if c == nil {
		return
	}
	c.Polls.WithLabelValues(result).Inc()
}

// ObserveProgress records the tracked job's progress. Safe on a nil collector.
func (c *Collector) ObserveProgress(percent float64) {
	if c == nil {
		return
	}
	c.Progress.Set(percent)
}

// ObserveJob counts a terminal outcome. Safe on a nil collector.
func (c *Collector) ObserveJob(outcome string, seconds float64) {
	if c == nil {
		return
	}
	c.Jobs.WithLabelValues(outcome).Inc()
	c.JobDuration.Observe(seconds)
}

// ObserveRequest records backend latency. Safe on a nil collector.
func (c *Collector) ObserveRequest(op string, seconds float64) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(op).Observe(seconds)
}
