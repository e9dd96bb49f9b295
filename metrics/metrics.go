// Package metrics holds the Prometheus collectors for the pipeline and the
// web shell.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scribe"

// Pipeline metrics (incremented directly by the orchestrator).
var (
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Pipeline invocations by outcome (ok, fatal).",
	}, []string{"outcome"})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14), // 0.5s → ~68min
	}, []string{"stage"})

	StageDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_degraded_total",
		Help:      "Stages that failed without aborting the pipeline.",
	}, []string{"stage"})
)

// HTTP metrics.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"method", "route", "status_code"})

	JobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "jobs_in_flight",
		Help:      "Transcription jobs currently running.",
	})
)

func init() {
	prometheus.MustRegister(
		PipelineRunsTotal,
		StageDuration,
		StageDegradedTotal,
		HTTPRequestsTotal,
		JobsInFlight,
	)
}

// ObserveStage records how long a stage took.
func ObserveStage(stage string, started time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// Instrument counts requests by route pattern to keep label cardinality bounded.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
