package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	EndpointActiveContainers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hutch_endpoint_active_containers",
			Help: "Containers currently reserved or running per endpoint",
		},
		[]string{"endpoint"},
	)

	ContainersStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_containers_started_total",
			Help: "Total number of sandbox containers started",
		},
	)

	// Build metrics
	BuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutch_builds_total",
			Help: "Total number of image builds by result",
		},
		[]string{"result"},
	)

	BuildRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_build_retries_total",
			Help: "Total number of no-cache retries after cache corruption",
		},
	)

	BuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hutch_build_duration_seconds",
			Help:    "Image build duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// Exec metrics
	ExecsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutch_execs_total",
			Help: "Total number of command executions by result",
		},
		[]string{"result"},
	)

	// Cleanup metrics
	CleanupRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_cleanup_removed_total",
			Help: "Total number of containers removed by cleanup",
		},
	)
)

func init() {
	prometheus.MustRegister(EndpointActiveContainers)
	prometheus.MustRegister(ContainersStartedTotal)
	prometheus.MustRegister(BuildsTotal)
	prometheus.MustRegister(BuildRetriesTotal)
	prometheus.MustRegister(BuildDuration)
	prometheus.MustRegister(ExecsTotal)
	prometheus.MustRegister(CleanupRemovedTotal)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes the metrics endpoint on addr. It blocks, so callers run
// it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
