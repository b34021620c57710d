// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Monitoring loop metrics, served on /metrics when the status server runs.
var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_cycles_total",
			Help: "Monitoring cycles run, by outcome",
		},
		[]string{"status"}, // ok, collect_error
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "perfwatch_cycle_duration_seconds",
			Help:    "Wall time of one monitoring cycle",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	AnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_anomalies_total",
			Help: "Anomalies detected",
		},
		[]string{"type", "severity"},
	)

	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_recommendations_total",
			Help: "Recommendations issued",
		},
		[]string{"type"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_store_errors_total",
			Help: "Failed writes to the metric store",
		},
		[]string{"operation"},
	)

	BaselinesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "perfwatch_baselines",
			Help: "Baselines currently cached",
		},
	)

	BaselineRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "perfwatch_baseline_refreshes_total",
			Help: "Baseline refresh passes run",
		},
	)

	CleanupRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_cleanup_rows_deleted_total",
			Help: "Rows removed by retention cleanup",
		},
		[]string{"table"},
	)

	DatabaseSizeMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "perfwatch_database_size_megabytes",
			Help: "On-disk size of the metric store",
		},
	)

	// Host gauges mirror the latest sample.
	HostCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perfwatch_host_cpu_percent",
		Help: "Latest system CPU utilisation",
	})
	HostMemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perfwatch_host_memory_percent",
		Help: "Latest system memory utilisation",
	})
	HostSwapPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perfwatch_host_swap_percent",
		Help: "Latest swap utilisation",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perfwatch_http_requests_total",
			Help: "Status server requests",
		},
		[]string{"path", "code"},
	)
)
