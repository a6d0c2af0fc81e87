package internal

import (
	"jiorelay/config"
	"jiorelay/entity"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "relay",
	Name:      "requests_total",
	Help:      "Total number of relayed requests by operation and result.",
}, []string{"operation", "result"})

var upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "relay",
	Name:      "upstream_duration_seconds",
	Help:      "Duration of payment gateway calls.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

func countRequest(operation, result string) {
	if len(operation) == 0 {
		return
	}
	requestCounter.With(prometheus.Labels{"operation": operation, "result": result}).Inc()
}

func observeUpstream(transactionType entity.TransactionType, duration time.Duration) {
	upstreamDuration.With(prometheus.Labels{"operation": transactionType.Operation()}).Observe(duration.Seconds())
}

// ListenMetrics serves /metrics on its own listener when enabled.
func ListenMetrics(conf *config.Config, logger *Logger) error {
	if !conf.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	address := conf.Metrics.BindIP + ":" + conf.Metrics.Port
	logger.Info("starting metrics server on " + address)
	return http.ListenAndServe(address, mux)
}
