package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	ManagedContainers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "podkeep_managed_containers",
			Help: "Number of containers currently under management",
		},
	)

	RunningContainers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "podkeep_running_containers",
			Help: "Number of managed containers observed running in the last check",
		},
	)

	// Loop metrics
	ReconcileCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "podkeep_reconcile_cycles_total",
			Help: "Total number of completed reconciliation cycles",
		},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "podkeep_reconcile_duration_seconds",
			Help:    "Reconciliation cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DiscoveryRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "podkeep_discovery_runs_total",
			Help: "Total number of descriptor discovery runs",
		},
	)

	// Restart metrics
	RestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "podkeep_restarts_total",
			Help: "Total number of verified successful restarts",
		},
	)

	RestartFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "podkeep_restart_failures_total",
			Help: "Total number of failed restart attempts",
		},
	)
)

func init() {
	prometheus.MustRegister(ManagedContainers)
	prometheus.MustRegister(RunningContainers)
	prometheus.MustRegister(ReconcileCyclesTotal)
	prometheus.MustRegister(ReconcileDuration)
	prometheus.MustRegister(DiscoveryRunsTotal)
	prometheus.MustRegister(RestartsTotal)
	prometheus.MustRegister(RestartFailuresTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
