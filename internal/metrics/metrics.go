// Package metrics : prometheus метрики HTTP, хранилища и сверки
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docvault"

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Количество HTTP запросов",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP запросов",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// BlobOperations : операции с объектным хранилищем по результату
	BlobOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_operations_total",
			Help:      "Операции с объектным хранилищем",
		},
		[]string{"op", "result"},
	)

	ReconcileCandidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_candidates_total",
			Help:      "Записи о рассинхроне хранилища и БД",
		},
		[]string{"kind", "outcome"},
	)

	registry     = prometheus.NewRegistry()
	registerOnce sync.Once
)

// Init : регистрирует метрики один раз за процесс
func Init() {
	registerOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			RequestCounter,
			RequestDuration,
			BlobOperations,
			ReconcileCandidates,
		)
	})
}

func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func Registry() *prometheus.Registry {
	return registry
}

// ObserveBlob : result = ok | not_found | error
func ObserveBlob(op string, result string) {
	BlobOperations.WithLabelValues(op, result).Inc()
}

func ObserveReconcile(kind string, outcome string) {
	ReconcileCandidates.WithLabelValues(kind, outcome).Inc()
}
