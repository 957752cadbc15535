package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	SurveySwipes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_swipes_total",
			Help: "Total number of Surprise Me swipes",
		},
		[]string{"choice"}, // "like", "dislike"
	)

	RecommendationResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_results",
			Help:    "Number of POIs returned per recommendation request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	RecommendationRadiusExpansions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_radius_expansions_total",
			Help: "Recommendation requests that had to widen the search radius",
		},
	)

	GeoIndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poi_geo_index_entries",
			Help: "POIs in the Redis geo index after the last reindex",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Redis cache lookups by cache and result",
		},
		[]string{"cache", "result"}, // result: "hit", "miss"
	)
)

func RecordSwipe(liked bool) {
	choice := "dislike"
	if liked {
		choice = "like"
	}
	SurveySwipes.WithLabelValues(choice).Inc()
}

func RecordCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}
