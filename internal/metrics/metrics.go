package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Listing fetcher metrics
	ListingFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_listing_fetches_total",
			Help: "Total number of listing page fetches",
		},
		[]string{"target_kind", "outcome"}, // outcome: ok, http_error, malformed, network
	)

	ListingFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redpull_listing_fetch_duration_seconds",
			Help:    "Duration of listing page fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"target_kind"},
	)

	ListingPostsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redpull_listing_posts_received_total",
			Help: "Total number of posts decoded from listing pages",
		},
	)

	UpstreamHTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_upstream_http_requests_total",
			Help: "Total number of outbound HTTP requests",
		},
		[]string{"status"}, // status: success, retry, failure
	)

	UpstreamHTTPRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redpull_upstream_http_retries_total",
			Help: "Total number of outbound HTTP request retries",
		},
	)

	UpstreamRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redpull_upstream_rate_limit_waits_total",
			Help: "Total number of times an outbound request waited for the pacing limiter",
		},
	)

	UpstreamRetryAfterWaits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "redpull_upstream_retry_after_wait_seconds",
			Help:    "Duration of Retry-After waits in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_token_refreshes_total",
			Help: "Anonymous OAuth token refresh attempts",
		},
		[]string{"outcome"},
	)

	// Media classifier metrics
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_classifications_total",
			Help: "Posts classified, by winning rule and resulting kind",
		},
		[]string{"rule", "kind"},
	)

	// Proxy worker metrics
	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_proxy_requests_total",
			Help: "Requests sent to the proxy worker",
		},
		[]string{"operation", "outcome"},
	)

	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "redpull_sessions_active",
			Help: "Number of live browsing sessions",
		},
	)

	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redpull_sessions_expired_total",
			Help: "Sessions removed after being idle",
		},
	)

	TilesRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_tiles_rendered_total",
			Help: "Tiles appended to sessions, by kind",
		},
		[]string{"kind"},
	)

	PostsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_posts_skipped_total",
			Help: "Posts that produced no tile",
		},
		[]string{"reason"}, // reason: duplicate, blocked, filtered
	)

	StaleResultsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redpull_stale_results_discarded_total",
			Help: "Fetch results dropped because the session was reset while they were in flight",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "redpull_cache_items",
			Help: "Current number of items in a cache",
		},
		[]string{"cache"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "redpull_cache_size_bytes",
			Help: "Current cost of a cache in bytes",
		},
		[]string{"cache"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Errors while sampling gauges",
		},
		[]string{"collector"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to clients",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redpull_events_published_total",
			Help: "Tile events published to the message bus",
		},
		[]string{"outcome"},
	)
)
