// Package metrics exposes Prometheus instrumentation for resolution, caching and
// catalog loading. Collectors register with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache tiers used as label values.
const (
	TierMemory     = "memory"
	TierPersistent = "persistent"
)

// NoMatchLabel is the confidence label recorded for a resolution with no hit.
const NoMatchLabel = "none"

var (
	// Resolution Metrics
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_resolutions_total",
			Help: "Total number of resolutions by outcome confidence",
		},
		[]string{"confidence"}, // "exact", "id", "keyword", "equipment+movement", "muscle+keyword", "none"
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exercise_resolution_duration_seconds",
			Help:    "Duration of uncached tier walks in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_cache_hits_total",
			Help: "Total number of resolution cache hits",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_cache_misses_total",
			Help: "Total number of resolution cache misses",
		},
		[]string{"tier"},
	)

	CacheClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exercise_cache_clears_total",
			Help: "Total number of explicit cache clears",
		},
	)

	// Catalog Metrics
	CatalogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "exercise_catalog_entries",
			Help: "Number of entries in the active catalog index",
		},
	)

	CatalogDiagnostics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "exercise_catalog_diagnostics",
			Help: "Number of diagnostics recorded while building the active index",
		},
	)

	CatalogLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_catalog_loads_total",
			Help: "Total number of catalog load attempts by result",
		},
		[]string{"result"}, // "success", "error"
	)

	CatalogLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exercise_catalog_load_duration_seconds",
			Help:    "Duration of catalog loads including index build",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordResolution records the outcome of one uncached tier walk.
func RecordResolution(confidence string, d time.Duration) {
	if confidence == "" {
		confidence = NoMatchLabel
	}
	Resolutions.WithLabelValues(confidence).Inc()
	ResolutionDuration.Observe(d.Seconds())
}

// RecordCacheLookup records a hit or miss on a cache tier.
func RecordCacheLookup(tier string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(tier).Inc()
		return
	}
	CacheMisses.WithLabelValues(tier).Inc()
}

// RecordCatalogLoad records a load attempt. entries and diagnostics are only applied
// on success.
func RecordCatalogLoad(err error, d time.Duration, entries, diagnostics int) {
	CatalogLoadDuration.Observe(d.Seconds())
	if err != nil {
		CatalogLoads.WithLabelValues("error").Inc()
		return
	}
	CatalogLoads.WithLabelValues("success").Inc()
	CatalogEntries.Set(float64(entries))
	CatalogDiagnostics.Set(float64(diagnostics))
}
