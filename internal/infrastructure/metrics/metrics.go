// Package metrics exposes Prometheus collectors for aging computations,
// report exports, webhook traffic and HTTP requests.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	metricPrefix = "contabilidad_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	agingTotal   *prometheus.CounterVec
	agingLatency *prometheus.HistogramVec
	agingItems   *prometheus.CounterVec
	agingSkipped *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	webhookRequests *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers the collectors with the default registry. db, when not
// nil, backs gauges of open documents and stored webhook events.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		agingTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aging_computations_total",
				Help: "Total aging computations by direction and result",
			},
			[]string{"direction", "result"},
		)
		agingLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aging_computation_seconds",
				Help:    "Aging computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"direction"},
		)
		agingItems = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aging_items_total",
				Help: "Open items fed into aging computations",
			},
			[]string{"direction"},
		)
		agingSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aging_skipped_items_total",
				Help: "Open items left out of aging reports by reason",
			},
			[]string{"reason"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_exports_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		)
		webhookRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "webhook_requests_total",
				Help: "Webhook and notification proxy requests by endpoint and status code",
			},
			[]string{"endpoint", "code"},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
		prometheus.MustRegister(
			agingTotal,
			agingLatency,
			agingItems,
			agingSkipped,
			exportTotal,
			exportLatency,
			webhookRequests,
			httpRequests,
			httpLatency,
		)
		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAging records one aging computation
func ObserveAging(direction string, items int, skippedReasons []string, duration time.Duration, err error) {
	if direction == "" {
		direction = "unknown"
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	if agingTotal != nil {
		agingTotal.WithLabelValues(direction, result).Inc()
	}
	if agingLatency != nil {
		agingLatency.WithLabelValues(direction).Observe(duration.Seconds())
	}
	if agingItems != nil && items > 0 {
		agingItems.WithLabelValues(direction).Add(float64(items))
	}
	if agingSkipped != nil {
		for _, reason := range skippedReasons {
			agingSkipped.WithLabelValues(reason).Inc()
		}
	}
}

// ObserveExport records one report export
func ObserveExport(format string, duration time.Duration, err error) {
	if format == "" {
		format = "unknown"
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format).Observe(duration.Seconds())
	}
}

// IncWebhook counts a webhook or proxy response
func IncWebhook(endpoint string, status int) {
	if webhookRequests != nil {
		webhookRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
}

// ObserveHTTP records one HTTP request. route is the matched route pattern,
// never the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}
