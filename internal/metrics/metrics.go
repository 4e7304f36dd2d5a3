package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 15000}

var (
	SearchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simapi_search_requests_total",
		Help: "Total /search requests by query type and outcome",
	}, []string{"type", "outcome"})
	SearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simapi_search_duration_ms",
		Help:    "End-to-end /search duration in milliseconds",
		Buckets: durationBuckets,
	})
	SummaryResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simapi_summary_results",
		Help:    "Number of flattened result records per successful search",
		Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
	})
	UpstreamRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simapi_upstream_requests_total",
		Help: "Total outbound lookup requests",
	})
	UpstreamStatusTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simapi_upstream_status_total",
		Help: "Outbound lookup responses by HTTP status code",
	}, []string{"code"})
	UpstreamFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simapi_upstream_fail_total",
		Help: "Outbound lookup transport failures by reason",
	}, []string{"reason"})
	UpstreamDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simapi_upstream_duration_ms",
		Help:    "Outbound lookup duration in milliseconds",
		Buckets: durationBuckets,
	})
	StatsWriteFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simapi_stats_write_fail_total",
		Help: "Failed statistics writes by backend",
	}, []string{"backend"})
)

func init() {
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchDurationMs,
		SummaryResults,
		UpstreamRequestsTotal,
		UpstreamStatusTotal,
		UpstreamFailTotal,
		UpstreamDurationMs,
		StatsWriteFailTotal,
	)
}

// 文档注释：返回 Prometheus 指标监听器，在主入口挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }
