package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts pages returned by the operation caller.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paginator_pages_total",
			Help: "Total number of pages fetched by paginators",
		},
		[]string{"operation"},
	)

	// ItemsEmitted counts primary result key items delivered to callers.
	ItemsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paginator_items_total",
			Help: "Total number of primary result items emitted by paginators",
		},
		[]string{"operation"},
	)

	// StuckPaginations counts paginations aborted on a repeated marker.
	StuckPaginations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paginator_stuck_total",
			Help: "Total number of paginations aborted because markers did not advance",
		},
		[]string{"operation"},
	)

	// Truncations counts pages cut short by a MaxItems budget.
	Truncations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paginator_truncations_total",
			Help: "Total number of pages truncated to respect MaxItems",
		},
		[]string{"operation"},
	)

	// PageDuration tracks operation caller latency per page.
	PageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paginator_page_duration_seconds",
			Help:    "Duration of single page fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
