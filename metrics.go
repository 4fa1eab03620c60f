package filecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mRetrieveRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filecache_retrieve_requests_total",
		Help: "Total number of retrieve calls.",
	})
	mRetrieveHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filecache_retrieve_hits_total",
		Help: "Retrieve calls served by an existing cache entry.",
	})
	mRetrieveMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filecache_retrieve_misses_total",
		Help: "Retrieve calls that performed a source read.",
	})
	mRetrieveFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filecache_retrieve_failures_total",
		Help: "Retrieve calls that returned an error.",
	})
	mBytesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filecache_bytes_fetched_total",
		Help: "Bytes streamed from source readers into cache entries.",
	})
	mEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecache_evictions_total",
		Help: "Cache entries deleted by the eviction engine, by reason.",
	}, []string{"reason"})
	mActivePins = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filecache_active_pins",
		Help: "Number of currently held pin tokens.",
	})
)
