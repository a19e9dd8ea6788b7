package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kisanbot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "kisanbot_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	ModelAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kisanbot_model_attempts_total",
			Help: "Total number of generative model invocation attempts",
		},
		[]string{"model", "result"},
	)

	ModelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kisanbot_model_latency_seconds",
			Help:    "Latency of a single generative model HTTP call",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"model"},
	)

	Outcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kisanbot_outcomes_total",
			Help: "Total number of diagnosis and chat outcomes by code",
		},
		[]string{"flow", "code"},
	)

	QualityRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kisanbot_quality_rejections_total",
			Help: "Total number of diagnoses deferred because of image quality",
		},
		[]string{"reason"},
	)
)

// Attempt の結果ラベル
const (
	ResultOK        = "ok"
	ResultTransport = "transport"
	ResultEmpty     = "empty_response"
	ResultNetwork   = "network"
)

// ObserveOutcome は、フローごとの結果コードを記録します。成功時のcodeは空文字列です
func ObserveOutcome(flow, code string) {
	if code == "" {
		code = "ok"
	}
	Outcomes.WithLabelValues(flow, code).Inc()
}
