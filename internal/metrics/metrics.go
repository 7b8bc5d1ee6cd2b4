package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000}

var (
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hope_geocode_requests_total",
		Help: "Geocoding provider calls by outcome (ok, not_found, timeout)",
	}, []string{"outcome"})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hope_geocode_duration_ms",
		Help:    "Geocoding call duration in milliseconds, including rate-limit wait",
		Buckets: durationBuckets,
	})
	GeocodeFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hope_geocode_fallback_total",
		Help: "Fallback chain results by level (address, zip, borough, failed)",
	}, []string{"level"})
	GeocodeCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hope_geocode_cache_total",
		Help: "Geocode cache lookups by result (hit, miss)",
	}, []string{"result"})

	IngestRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hope_ingest_records_total",
		Help: "Ingested records by source and outcome",
	}, []string{"source", "outcome"})
	IngestRunDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hope_ingest_run_duration_seconds",
		Help:    "Duration of one ingestion run per source",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"source"})

	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hope_query_duration_ms",
		Help:    "Directory query duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"query"})
	QueryResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hope_query_results",
		Help:    "Number of locations returned per query",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 75, 100, 250, 500},
	}, []string{"query"})
)

func init() {
	prometheus.MustRegister(
		GeocodeRequestsTotal,
		GeocodeDurationMs,
		GeocodeFallbackTotal,
		GeocodeCacheTotal,
		IngestRecordsTotal,
		IngestRunDurationSeconds,
		QueryDurationMs,
		QueryResults,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
