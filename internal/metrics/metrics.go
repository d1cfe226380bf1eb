package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_requests_total",
		Help: "Requests sent to the booking backend by endpoint and status.",
	}, []string{"endpoint", "status"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_request_seconds",
		Help:    "Latency of booking backend requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_cache_hits_total",
		Help: "Upstream GETs served from the response cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_cache_misses_total",
		Help: "Upstream GETs that missed the response cache.",
	})

	Renders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_documents_rendered_total",
		Help: "Generated documents by kind.",
	}, []string{"kind"})

	TRFDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_trf_dispatches_total",
		Help: "TRF email dispatches by channel and result.",
	}, []string{"channel", "result"})
)
