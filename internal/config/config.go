package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/redpull/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port            string
	ShutdownTimeout time.Duration
	UserAgent       string
	HTTPMaxRetries  int
	HTTPRetryBase   time.Duration
	HTTPTimeout     time.Duration
	LogHTTPRetries  bool
	// Reddit listing API
	RedditAPIBase   string // unauthenticated listing host
	RedditOAuthBase string // listing host used once an anonymous token is held
	RedditTokenURL  string
	RedditClientID  string // enables the installed-client grant when set
	RedditDeviceID  string
	ListingLimit    int // page size sent as limit=; 0 omits the parameter
	// Upstream pacing (Reddit API); 0 disables it
	UpstreamRPS   float64
	UpstreamBurst int
	// Media classification
	BlockTerms  []string // case-insensitive substrings that filter a post out
	EmbedParent string   // parent= value for Twitch clip embeds
	// Proxy worker (redgifs slugs, gallery recovery)
	ProxyURL              string
	ProxyTimeout          time.Duration
	ProxyCacheTTL         time.Duration
	ProxyCacheMB          int
	ProxyCacheEntries     int
	ProxyBreakerThreshold int
	ProxyBreakerTimeout   time.Duration
	// Session controller
	ScrollThresholdPx int
	ViewerActiveZone  float64 // fraction of a tile that opens the viewer; 0 or 1 disables the dead zone
	ViewerKeyboard    bool
	DefaultMode       string
	SessionIdleTTL    time.Duration
	SessionMax        int
	SessionSweepEvery time.Duration
	// Event fan-out
	NATSURL     string
	NATSSubject string
	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	CORSAllowedOrigins   []string // allowed CORS origins
	EnableRateLimit      bool     // enable rate limiting middleware
	MaxRequestBodyBytes  int64
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
	MetricsInterval   time.Duration
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		Port:            utils.GetEnvString("PORT", "8080"),
		ShutdownTimeout: utils.GetEnvAsMillis("SHUTDOWN_TIMEOUT_MS", 10000),
		UserAgent:       utils.GetEnvString("REDDIT_USER_AGENT", "redpull/0.1 (media browser)"),
		HTTPMaxRetries:  utils.GetEnvAsInt("HTTP_MAX_RETRIES", 1),
		HTTPRetryBase:   utils.GetEnvAsMillis("HTTP_RETRY_BASE_MS", 300),
		HTTPTimeout:     utils.GetEnvAsMillis("HTTP_TIMEOUT_MS", 15000),
		LogHTTPRetries:  utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),

		RedditAPIBase:   strings.TrimRight(utils.GetEnvString("REDDIT_API_BASE", "https://api.reddit.com"), "/"),
		RedditOAuthBase: strings.TrimRight(utils.GetEnvString("REDDIT_OAUTH_BASE", "https://oauth.reddit.com"), "/"),
		RedditTokenURL:  utils.GetEnvString("REDDIT_TOKEN_URL", "https://www.reddit.com/api/v1/access_token"),
		RedditClientID:  strings.TrimSpace(os.Getenv("REDDIT_CLIENT_ID")),
		RedditDeviceID:  utils.GetEnvString("REDDIT_DEVICE_ID", "DO_NOT_TRACK_THIS_DEVICE"),
		ListingLimit:    utils.GetEnvAsInt("REDDIT_PAGE_LIMIT", 20),

		UpstreamRPS:   utils.GetEnvAsFloat("UPSTREAM_RPS", 0),
		UpstreamBurst: utils.GetEnvAsInt("UPSTREAM_BURST", 1),

		BlockTerms:  utils.UniqueStrings(utils.LowerAll(utils.GetEnvAsSlice("BLOCK_TERMS", nil, ","))),
		EmbedParent: utils.GetEnvString("EMBED_PARENT", "localhost"),

		ProxyURL:              strings.TrimRight(strings.TrimSpace(os.Getenv("PROXY_URL")), "/"),
		ProxyTimeout:          utils.GetEnvAsMillis("PROXY_TIMEOUT_MS", 8000),
		ProxyCacheTTL:         utils.GetEnvAsMillis("PROXY_CACHE_TTL_MS", 30*60*1000),
		ProxyCacheMB:          utils.GetEnvAsInt("PROXY_CACHE_MB", 16),
		ProxyCacheEntries:     utils.GetEnvAsInt("PROXY_CACHE_ENTRIES", 10000),
		ProxyBreakerThreshold: utils.GetEnvAsInt("PROXY_BREAKER_THRESHOLD", 5),
		ProxyBreakerTimeout:   utils.GetEnvAsMillis("PROXY_BREAKER_TIMEOUT_MS", 30000),

		ScrollThresholdPx: utils.GetEnvAsInt("SCROLL_THRESHOLD_PX", 400),
		ViewerActiveZone:  utils.GetEnvAsFloat("VIEWER_ACTIVE_ZONE", 0),
		ViewerKeyboard:    utils.GetEnvAsBool("VIEWER_KEYBOARD", true),
		DefaultMode:       strings.ToLower(utils.GetEnvString("DEFAULT_MODE", "auto")),
		SessionIdleTTL:    utils.GetEnvAsMillis("SESSION_IDLE_TTL_MS", 30*60*1000),
		SessionMax:        utils.GetEnvAsInt("SESSION_MAX", 1000),
		SessionSweepEvery: utils.GetEnvAsMillis("SESSION_SWEEP_MS", 60000),

		NATSURL:     strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubject: utils.GetEnvString("NATS_SUBJECT", "redpull.tiles"),

		// Security settings with sensible defaults
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		MaxRequestBodyBytes:  int64(utils.GetEnvAsInt("MAX_REQUEST_BODY_BYTES", 64*1024)),

		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
		MetricsInterval:   utils.GetEnvAsMillis("METRICS_INTERVAL_MS", 15000),
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}
	if cached.ViewerActiveZone < 0 || cached.ViewerActiveZone > 1 {
		cached.ViewerActiveZone = 0
	}
	if cached.HTTPMaxRetries < 1 {
		cached.HTTPMaxRetries = 1
	}
	if cached.ScrollThresholdPx < 0 {
		cached.ScrollThresholdPx = 0
	}

	// Parse CORS allowed origins
	cached.CORSAllowedOrigins = utils.UniqueStrings(utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS",
		[]string{"http://localhost:8080", "http://localhost:5173"}, ","))

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// AnonymousOAuth reports whether listing requests should go through the installed-client grant.
func (c *Config) AnonymousOAuth() bool { return c.RedditClientID != "" }

// ListingBase returns the host listing requests are sent to.
func (c *Config) ListingBase() string {
	if c.AnonymousOAuth() {
		return c.RedditOAuthBase
	}
	return c.RedditAPIBase
}
