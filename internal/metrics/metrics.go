package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notebook_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notebook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notebook_ai_requests_total",
			Help: "Total number of AI assist invocations by outcome.",
		},
		[]string{"action", "mode", "status"},
	)

	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notebook_ai_request_duration_seconds",
			Help:    "AI assist invocation latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		},
		[]string{"action", "mode"},
	)

	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notebook_ai_tokens_total",
			Help: "Total tokens consumed by AI assist invocations.",
		},
		[]string{"action"},
	)

	AICostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notebook_ai_cost_total",
			Help: "Accumulated upstream cost of AI assist invocations.",
		},
	)

	AITokensEstimatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notebook_ai_tokens_estimated_total",
			Help: "Invocations whose token count was estimated because the upstream sent no usage.",
		},
	)

	QuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notebook_ai_quota_rejections_total",
			Help: "Total number of requests rejected by tier quotas.",
		},
		[]string{"window"},
	)

	BurstRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notebook_ai_burst_rejections_total",
			Help: "AI requests rejected by the per-user burst limiter.",
		},
	)

	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notebook_ai_active_streams",
			Help: "Streaming responses currently open.",
		},
	)

	StreamFramesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notebook_ai_stream_frames_skipped_total",
			Help: "Upstream stream frames that could not be decoded.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AIRequestsTotal,
		AIRequestDuration,
		AITokensTotal,
		AICostTotal,
		AITokensEstimatedTotal,
		QuotaRejectionsTotal,
		BurstRejectionsTotal,
		ActiveStreams,
		StreamFramesSkippedTotal,
	)
}
