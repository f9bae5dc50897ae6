package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP 请求指标
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of requests",
		},
		[]string{"service", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	// 业务指标
	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of upload confirmations by outcome",
		},
		[]string{"status"},
	)

	DedupHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_hits_total",
			Help: "Number of commits that reused existing blob content",
		},
	)

	TokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "download_tokens_issued_total",
			Help: "Number of download tokens issued",
		},
	)

	TokensConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_tokens_consumed_total",
			Help: "Download token consumption attempts by outcome",
		},
		[]string{"status"},
	)

	TokensSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "download_tokens_swept_total",
			Help: "Number of expired download tokens removed by the sweeper",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		Uploads,
		DedupHits,
		TokensIssued,
		TokensConsumed,
		TokensSwept,
	)
}

// StartMetricsServer 启动独立的 metrics HTTP 服务器
func StartMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			panic("failed to start metrics server: " + err.Error())
		}
	}()
}

// RecordRequest 记录请求指标的助手函数
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}
