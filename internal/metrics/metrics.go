package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Метрики вычислительного конвейера
	ComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iri_computations_total",
			Help: "Total number of IRI computations",
		},
		[]string{"status"},
	)

	ComputationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iri_computation_duration_seconds",
			Help:    "Duration of IRI computations in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	SamplesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iri_samples_processed_total",
			Help: "Total number of sensor samples processed",
		},
	)

	SegmentsProduced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iri_segments_produced_total",
			Help: "Total number of road segments produced",
		},
	)

	// Метрики валидации входных данных
	ValidationRejects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iri_validation_rejects_total",
			Help: "Total number of rejected input series",
		},
		[]string{"reason"},
	)

	RowsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iri_rows_dropped_total",
			Help: "Total number of rows dropped due to corrupted mandatory cells",
		},
	)

	GapSplits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iri_gap_splits_total",
			Help: "Total number of logging interruptions that split a series",
		},
	)

	// Метрики кеша результатов
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iri_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iri_cache_misses_total",
			Help: "Total number of result cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iri_cache_evictions_total",
			Help: "Total number of result cache evictions",
		},
	)

	SingleflightShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iri_singleflight_shared_total",
			Help: "Total number of callers that shared an in-flight computation",
		},
	)
)

// Handler возвращает HTTP handler для /metrics, вызывающая сторона сама
// решает, где его поднимать
func Handler() http.Handler {
	return promhttp.Handler()
}
