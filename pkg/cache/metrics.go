package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	layerMemory = "memory"
	layerRedis  = "redis"
)

var (
	// cacheHits tracks cache hits by store layer.
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgen_cache_hits_total",
			Help: "Total number of quiz cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// cacheMisses tracks cache misses, including lazy-expiry evictions.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizgen_cache_misses_total",
			Help: "Total number of quiz cache misses",
		},
	)

	// cacheEntries tracks resident entries by store layer.
	cacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quizgen_cache_entries",
			Help: "Current number of resident quiz cache entries",
		},
		[]string{"layer"},
	)

	// cacheErrors tracks store operation errors.
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgen_cache_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
