package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ShoppingListExports = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_shopping_list_exports_total",
			Help: "Total number of shopping list downloads",
		},
	)

	ShoppingListLines = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "foodgram_shopping_list_lines",
			Help:    "Number of aggregated lines per shopping list download",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	RecipeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipe_writes_total",
			Help: "Total number of recipe writes by operation",
		},
		[]string{"operation"}, // "create", "update", "delete"
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"action"},
	)
)

// RecordAPIRequest records one finished request. route is the matched gin
// route template, not the raw path.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordShoppingListExport records one download and its size.
func RecordShoppingListExport(lines int) {
	ShoppingListExports.Inc()
	ShoppingListLines.Observe(float64(lines))
}
