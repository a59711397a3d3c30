// Package prometheus exposes FeedKit runtime activity as Prometheus metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "feedkit"

var (
	// loadTransitionsTotal counts accepted load state transitions.
	loadTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_transitions_total",
			Help:      "Total number of accepted load state transitions",
		},
		[]string{"from", "to"},
	)

	// loadRejectionsTotal counts rejected load state transitions.
	loadRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_transitions_rejected_total",
			Help:      "Total number of rejected load state transitions",
		},
		[]string{"cause"}, // cause: invalid-transition, budget-exhausted
	)

	// loadRecoveriesTotal counts recoveries out of the error state.
	loadRecoveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_recoveries_total",
			Help:      "Total number of load state recoveries",
		},
		[]string{"kind"}, // kind: forced, last-valid
	)

	// loadResetsTotal counts explicit load state resets.
	loadResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_resets_total",
			Help:      "Total number of load state resets",
		},
	)

	// budgetExhaustionsTotal counts error budget trips.
	budgetExhaustionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_budget_exhaustions_total",
			Help:      "Total number of error budget exhaustions",
		},
	)

	// filterChangesTotal counts applied filter updates by source.
	filterChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_changes_total",
			Help:      "Total number of applied filter changes",
		},
		[]string{"source"}, // source: search, dashboard, sync, reset, restore
	)

	// filterConflictsTotal counts resolved filter conflicts.
	filterConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_conflicts_total",
			Help:      "Total number of resolved filter conflicts",
		},
		[]string{"field", "strategy"},
	)

	// fetchDuration is a histogram of page fetch duration in seconds.
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Histogram of page fetch duration in seconds",
			Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"status"},
	)

	// fetchRequestsTotal counts settled page fetches.
	fetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Total number of settled page fetches",
		},
		[]string{"status"}, // status: success, error
	)

	// fetchesInFlight is a gauge of fetches currently executing.
	fetchesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetches_in_flight",
			Help:      "Number of page fetches currently executing",
		},
	)

	// cacheEventsTotal counts page cache activity.
	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Total number of page cache events",
		},
		[]string{"kind"}, // kind: hit, miss, expired, invalidated, deduplicated
	)

	// cacheEntries is a gauge of cached pages.
	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of pages currently cached",
		},
	)

	// prefetchesTotal counts prefetch heuristic firings by trigger.
	prefetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetches_total",
			Help:      "Total number of prefetch heuristic firings",
		},
		[]string{"trigger"}, // trigger: velocity, dwell, proximity
	)

	// recordsEvictedTotal counts records dropped by memory optimization.
	recordsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_evicted_total",
			Help:      "Total number of records evicted by memory optimization",
		},
	)

	// persistenceOpsTotal counts snapshot loads and saves.
	persistenceOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_ops_total",
			Help:      "Total number of snapshot persistence operations",
		},
		[]string{"component", "op"}, // op: load, save
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		loadTransitionsTotal,
		loadRejectionsTotal,
		loadRecoveriesTotal,
		loadResetsTotal,
		budgetExhaustionsTotal,
		filterChangesTotal,
		filterConflictsTotal,
		fetchDuration,
		fetchRequestsTotal,
		fetchesInFlight,
		cacheEventsTotal,
		cacheEntries,
		prefetchesTotal,
		recordsEvictedTotal,
		persistenceOpsTotal,
	}
)

// RecordLoadTransition records an accepted load state transition.
func RecordLoadTransition(from, to string) {
	loadTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordLoadRejection records a rejected load state transition.
func RecordLoadRejection(cause string) {
	loadRejectionsTotal.WithLabelValues(cause).Inc()
}

// RecordLoadRecovery records a recovery out of the error state.
func RecordLoadRecovery(kind string) {
	loadRecoveriesTotal.WithLabelValues(kind).Inc()
}

// RecordLoadReset records an explicit load state reset.
func RecordLoadReset() {
	loadResetsTotal.Inc()
}

// RecordBudgetExhaustion records an error budget trip.
func RecordBudgetExhaustion() {
	budgetExhaustionsTotal.Inc()
}

// RecordFilterChange records an applied filter change.
func RecordFilterChange(source string) {
	filterChangesTotal.WithLabelValues(source).Inc()
}

// RecordFilterConflict records a resolved filter conflict.
func RecordFilterConflict(field, strategy string) {
	filterConflictsTotal.WithLabelValues(field, strategy).Inc()
}

// RecordFetchStart marks a fetch entering execution.
func RecordFetchStart() {
	fetchesInFlight.Inc()
}

// RecordFetchEnd records a settled fetch.
func RecordFetchEnd(status string, durationSeconds float64) {
	fetchesInFlight.Dec()
	fetchDuration.WithLabelValues(status).Observe(durationSeconds)
	fetchRequestsTotal.WithLabelValues(status).Inc()
}

// RecordCacheEvent records cache activity. Pass entries < 0 when the event
// carries no cache size.
func RecordCacheEvent(kind string, entries int) {
	cacheEventsTotal.WithLabelValues(kind).Inc()
	if entries >= 0 {
		cacheEntries.Set(float64(entries))
	}
}

// RecordPrefetch records a prefetch heuristic firing.
func RecordPrefetch(trigger string) {
	prefetchesTotal.WithLabelValues(trigger).Inc()
}

// RecordEviction records dropped records.
func RecordEviction(evicted int) {
	if evicted > 0 {
		recordsEvictedTotal.Add(float64(evicted))
	}
}

// RecordPersistence records a snapshot load or save.
func RecordPersistence(component, op string) {
	persistenceOpsTotal.WithLabelValues(component, op).Inc()
}
