package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fleetpeer"

var (
	// PositionUpserts counts position upserts.
	// source: http/mqtt, result: success/invalid/forbidden/error
	PositionUpserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_upserts_total",
			Help:      "Total number of driver position upserts.",
		},
		[]string{"source", "result"},
	)

	// RosterLatency records how long a roster aggregation takes.
	RosterLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "roster_latency_seconds",
			Help:      "Latency of assembling an organization roster.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// RosterDrivers reports the size of the last roster per status.
	RosterDrivers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "roster_drivers",
			Help:      "Drivers in the last assembled roster by status (online/offline).",
		},
		[]string{"organization", "status"},
	)

	// AccountProvisioning counts driver account creation attempts.
	// result: created/invalid/forbidden/conflict/compensated/error
	AccountProvisioning = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_provisioning_total",
			Help:      "Total number of driver account creation attempts.",
		},
		[]string{"result"},
	)

	// ChangeFeedSubscribers is the number of live change-feed subscribers.
	ChangeFeedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "changefeed_subscribers",
			Help:      "Number of connected change-feed subscribers.",
		},
	)

	// ChangeFeedDropped counts events dropped for slow subscribers.
	ChangeFeedDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changefeed_dropped_total",
			Help:      "Change-feed events dropped because a subscriber was too slow.",
		},
	)

	// PositionPushes counts driver-side pushes.
	// result: success or the lower-cased error code
	PositionPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_pushes_total",
			Help:      "Total number of position pushes attempted by a driver reporter.",
		},
		[]string{"transport", "result"},
	)

	// RosterRefreshes counts admin poller refreshes.
	// result: success/error/discarded
	RosterRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_refreshes_total",
			Help:      "Total number of admin roster refreshes.",
		},
		[]string{"result"},
	)

	// RosterExports counts roster snapshot exports.
	RosterExports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_exports_total",
			Help:      "Total number of roster exports.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		PositionUpserts,
		RosterLatency,
		RosterDrivers,
		AccountProvisioning,
		ChangeFeedSubscribers,
		ChangeFeedDropped,
		RosterExports,
		PositionPushes,
		RosterRefreshes,
	)
}
