// Package metrics defines the Prometheus collectors of the booking core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the booking core reports.
type Metrics struct {
	// Seat lock acquisitions by outcome
	// (acquired, refreshed, conflict, sold, not_found, error).
	LockAcquisitionsTotal *prometheus.CounterVec

	// Seat lock releases by outcome (released, noop, error).
	LockReleasesTotal *prometheus.CounterVec

	// Reservation commits by outcome
	// (confirmed, hold_loss, empty, not_found, error).
	CommitsTotal *prometheus.CounterVec

	// Holds reclaimed by the expiry sweeper.
	SweeperReclaimedTotal prometheus.Counter

	// Latency of commit attempts in seconds.
	CommitDuration prometheus.Histogram
}

// New creates the collectors and registers them on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them on the given
// registry.  Tests pass their own registry to avoid duplicate
// registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LockAcquisitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_lock_acquisitions_total",
				Help: "Seat lock acquisition attempts by outcome",
			},
			[]string{"status"},
		),
		LockReleasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_lock_releases_total",
				Help: "Seat lock release calls by outcome",
			},
			[]string{"status"},
		),
		CommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_commits_total",
				Help: "Reservation commit attempts by outcome",
			},
			[]string{"status"},
		),
		SweeperReclaimedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expired_holds_reclaimed_total",
				Help: "Expired seat holds reclaimed by the sweeper",
			},
		),
		CommitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reservation_commit_duration_seconds",
				Help:    "Latency of reservation commit attempts",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
	}

	reg.MustRegister(
		m.LockAcquisitionsTotal,
		m.LockReleasesTotal,
		m.CommitsTotal,
		m.SweeperReclaimedTotal,
		m.CommitDuration,
	)

	return m
}
