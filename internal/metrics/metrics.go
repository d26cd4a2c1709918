// Package metrics collects Prometheus counters/gauges for the crawler's
// job lifecycle: per-kind claim/complete/fail counts, a claim-to-finish
// latency histogram, and live in-flight and pending gauges, scraped by the
// admin HTTP server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the crawler's Prometheus metric set. Unlike a counter
// registered globally at package init, Collector is constructed explicitly
// so tests can build one against a private registry.
type Collector struct {
	jobsClaimed   *prometheus.CounterVec
	jobsCompleted *prometheus.CounterVec
	jobsFailed    *prometheus.CounterVec
	jobLatency    *prometheus.HistogramVec
	jobsInFlight  *prometheus.GaugeVec
	jobsPending   *prometheus.GaugeVec
}

// NewCollector builds a Collector and registers its metrics against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_jobs_claimed_total",
			Help: "Total number of jobs claimed off the queue, by kind.",
		}, []string{"kind"}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_jobs_completed_total",
			Help: "Total number of jobs completed successfully, by kind.",
		}, []string{"kind"}),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_jobs_failed_total",
			Help: "Total number of jobs failed, by kind.",
		}, []string{"kind"}),
		jobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawler_job_latency_seconds",
			Help:    "Job processing latency from claim to terminal state, by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		jobsInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crawler_jobs_in_flight",
			Help: "Current number of jobs claimed and being processed, by kind.",
		}, []string{"kind"}),
		jobsPending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crawler_jobs_pending",
			Help: "Last observed pending-job count, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(c.jobsClaimed, c.jobsCompleted, c.jobsFailed, c.jobLatency, c.jobsInFlight, c.jobsPending)
	return c
}

// Claimed records a job claim and marks it in-flight.
func (c *Collector) Claimed(kind string) {
	c.jobsClaimed.WithLabelValues(kind).Inc()
	c.jobsInFlight.WithLabelValues(kind).Inc()
}

// Completed records a successful terminal state and its processing latency.
func (c *Collector) Completed(kind string, latencySeconds float64) {
	c.jobsCompleted.WithLabelValues(kind).Inc()
	c.jobLatency.WithLabelValues(kind).Observe(latencySeconds)
	c.jobsInFlight.WithLabelValues(kind).Dec()
}

// Failed records a failed terminal state.
func (c *Collector) Failed(kind string) {
	c.jobsFailed.WithLabelValues(kind).Inc()
	c.jobsInFlight.WithLabelValues(kind).Dec()
}

// SetPending records the last observed pending-job count for kind.
func (c *Collector) SetPending(kind string, count int64) {
	c.jobsPending.WithLabelValues(kind).Set(float64(count))
}
