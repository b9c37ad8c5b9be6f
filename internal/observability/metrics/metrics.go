// Package metrics provides Prometheus instrumentation for berarelay.
//
// A relay run is a short-lived process, so metrics are not scraped. When
// enabled they are written to a node_exporter textfile collector file at the
// end of the run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enabled  bool
	registry *prometheus.Registry

	// Outbound HTTP metrics
	explorerRequestsTotal *prometheus.CounterVec
	explorerDuration      *prometheus.HistogramVec

	// Pipeline metrics
	runsTotal               *prometheus.CounterVec
	stepDuration            *prometheus.HistogramVec
	nameResolutionTotal     *prometheus.CounterVec
	verificationSubmitTotal *prometheus.CounterVec
	lastRunTimestamp        prometheus.Gauge
)

// Init initializes the metrics system on a fresh registry.
func Init(enabledFlag bool) {
	enabled = enabledFlag

	if !enabled {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	explorerRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "berarelay_explorer_requests_total",
			Help: "Total number of requests sent to explorer APIs",
		},
		[]string{"service", "method", "status"},
	)

	explorerDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "berarelay_explorer_request_duration_seconds",
			Help:    "Explorer API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "berarelay_runs_total",
			Help: "Total number of relay runs by outcome",
		},
		[]string{"result"},
	)

	stepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "berarelay_step_duration_seconds",
			Help:    "Duration of each pipeline step in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	nameResolutionTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "berarelay_name_resolution_total",
			Help: "Contract name resolutions by the candidate that produced the name",
		},
		[]string{"strategy", "source"},
	)

	verificationSubmitTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "berarelay_verification_submissions_total",
			Help: "Verification submissions by explorer status",
		},
		[]string{"status"},
	)

	lastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "berarelay_last_run_timestamp_seconds",
			Help: "Unix time the last relay run finished",
		},
	)
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// Registry returns the active registry, or nil when metrics are disabled.
func Registry() *prometheus.Registry {
	if !enabled {
		return nil
	}
	return registry
}

// WriteTextfile writes all collected metrics to path in the text exposition
// format. The file is replaced atomically.
func WriteTextfile(path string) error {
	if !enabled || path == "" {
		return nil
	}
	lastRunTimestamp.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
