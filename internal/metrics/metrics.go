package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciler metrics
	EventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatmirror_events_applied_total",
			Help: "Total inbound events applied to local state",
		},
		[]string{"kind"},
	)

	EventsIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatmirror_events_ignored_total",
			Help: "Total inbound events ignored because their kind is unknown",
		},
		[]string{"kind"},
	)

	HistoryPagesMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatmirror_history_pages_merged_total",
			Help: "Total history pages merged into channels",
		},
	)

	// Thumbnail cache metrics
	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatmirror_cache_bytes",
			Help: "Bytes currently held by the thumbnail cache",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatmirror_cache_entries",
			Help: "Entries currently held by the thumbnail cache",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatmirror_cache_evictions_total",
			Help: "Total thumbnail cache entries evicted to make room",
		},
	)

	CacheRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatmirror_cache_rejections_total",
			Help: "Total blobs dropped because they exceed the cache budget",
		},
	)

	// Action pipeline metrics
	SendRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatmirror_send_retries_total",
			Help: "Total message sends rescheduled after a failure",
		},
	)

	ActionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatmirror_action_failures_total",
			Help: "Total edit/delete/guild update dispatches that failed",
		},
		[]string{"action"},
	)
)
