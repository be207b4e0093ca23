package manageapi

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics tracks Prometheus counters for ManageAPI dispatch and the
// subsystems it fronts (upgrade runs, WAL swaps). The record functions
// below are no-ops while metricsInstance is nil.
type metrics struct {
	// Requests counts every Dispatch call by type, action, and outcome.
	// Labels: type, action, result=[success, error]
	Requests *prometheus.CounterVec

	// UpgradeAttempts counts upgrade.Controller.Start calls by outcome.
	// Labels: result=[success, error]
	UpgradeAttempts *prometheus.CounterVec

	// GlacierWALSwaps counts GlacierWAL segment swaps by WAL name.
	GlacierWALSwaps *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *metrics
)

// registerMetrics registers the package's Prometheus metrics exactly
// once. If registerer is nil, prometheus.DefaultRegisterer is used.
func registerMetrics(registerer prometheus.Registerer) *metrics {
	metricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		m := &metrics{
			Requests: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nsfs_manageapi_requests_total",
					Help: "Total ManageAPI dispatch calls by type, action, and result",
				},
				[]string{"type", "action", "result"},
			),
			UpgradeAttempts: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nsfs_upgrade_attempts_total",
					Help: "Total upgrade controller Start calls by result",
				},
				[]string{"result"},
			),
			GlacierWALSwaps: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nsfs_glacier_wal_swaps_total",
					Help: "Total GlacierWAL segment swaps by WAL name",
				},
				[]string{"wal"},
			),
		}
		registerer.MustRegister(m.Requests, m.UpgradeAttempts, m.GlacierWALSwaps)
		metricsInstance = m
	})
	return metricsInstance
}

func init() {
	registerMetrics(nil)
}

// recordDispatch records one Dispatch outcome.
func recordDispatch(reqType, action, outcome string) {
	if metricsInstance == nil {
		return
	}
	metricsInstance.Requests.WithLabelValues(reqType, action, outcome).Inc()
	if RequestType(reqType) == TypeUpgrade && Action(action) == ActionStart {
		metricsInstance.UpgradeAttempts.WithLabelValues(outcome).Inc()
	}
}

// RecordGlacierWALSwap records a GlacierWAL segment swap for the named
// WAL. It is exported for callers outside this package; no code in this
// module calls it.
func RecordGlacierWALSwap(walName string) {
	if metricsInstance == nil {
		return
	}
	metricsInstance.GlacierWALSwaps.WithLabelValues(walName).Inc()
}
