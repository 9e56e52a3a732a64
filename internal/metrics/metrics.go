package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonq",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "salonq",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	tokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonq",
			Name:      "queue_tokens_issued_total",
			Help:      "Tokens issued across all salons.",
		},
	)

	tokensServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonq",
			Name:      "queue_tokens_served_total",
			Help:      "Tokens completed via call-next.",
		},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonq",
			Name:      "queue_status_cache_total",
			Help:      "Queue status cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, tokensIssued, tokensServed, cacheHits)
	})
}

func ObserveHTTP(route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func IncTokensIssued() {
	tokensIssued.Inc()
}

func IncTokensServed() {
	tokensServed.Inc()
}

func IncCacheHit() {
	cacheHits.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	cacheHits.WithLabelValues("miss").Inc()
}
