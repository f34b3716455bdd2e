package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/redpull/internal/api"
	"github.com/onnwee/redpull/internal/api/handlers"
	"github.com/onnwee/redpull/internal/cache"
	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/errorreporting"
	"github.com/onnwee/redpull/internal/events"
	"github.com/onnwee/redpull/internal/httpx"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/media"
	"github.com/onnwee/redpull/internal/metrics"
	"github.com/onnwee/redpull/internal/middleware"
	"github.com/onnwee/redpull/internal/proxy"
	"github.com/onnwee/redpull/internal/redditapi"
	"github.com/onnwee/redpull/internal/secrets"
	"github.com/onnwee/redpull/internal/server"
	"github.com/onnwee/redpull/internal/session"
	"github.com/onnwee/redpull/internal/tracing"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found (falling back to system env)")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := secrets.Validate(
		map[string]string{"REDDIT_USER_AGENT": cfg.UserAgent, "REDDIT_API_BASE": cfg.RedditAPIBase},
		map[string]string{
			"REDDIT_API_BASE":   cfg.RedditAPIBase,
			"REDDIT_OAUTH_BASE": cfg.RedditOAuthBase,
			"REDDIT_TOKEN_URL":  cfg.RedditTokenURL,
			"PROXY_URL":         cfg.ProxyURL,
		},
	); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := errorreporting.Init(cfg); err != nil {
		logger.Warn("Failed to initialize Sentry", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init(cfg, "redpull", version)
	if err != nil {
		logger.Warn("Failed to initialize tracing", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hc := httpx.New(cfg)
	reddit := redditapi.NewClient(cfg, hc)
	if cfg.AnonymousOAuth() {
		logger.Info("Using anonymous OAuth for listings", "client_id", secrets.Mask(cfg.RedditClientID))
	}

	opts := media.Options{BlockTerms: cfg.BlockTerms, EmbedParent: cfg.EmbedParent}
	caches := map[string]cache.Cache{}
	samplers := map[string]metrics.CacheSampler{}
	if cfg.ProxyURL != "" {
		slugCache, err := cache.NewLRU("proxy", int64(cfg.ProxyCacheMB), int64(cfg.ProxyCacheEntries), cfg.ProxyCacheTTL)
		if err != nil {
			logger.Error("Failed to create proxy cache", "error", err)
			os.Exit(1)
		}
		defer slugCache.Close()
		caches["proxy"] = slugCache
		samplers["proxy"] = slugCache
		if pc := proxy.New(cfg, hc, slugCache); pc != nil {
			opts.Slugs = pc
			opts.Gallery = pc
			logger.Info("Proxy worker enabled", "url", secrets.MaskURL(cfg.ProxyURL))
		}
	}

	publisher, err := events.Connect(cfg)
	if err != nil {
		logger.Warn("Event bus unavailable, tile events will not be published", "error", err)
		publisher = events.Noop{}
	}
	defer publisher.Close()

	hub := handlers.NewHub()
	go hub.Run(ctx)
	defer hub.Stop()

	sessions := session.NewManager(cfg, session.Deps{
		Fetcher:    reddit,
		Classifier: media.New(opts),
		Sink:       session.MultiSink{hub, session.PublishTo(publisher)},
	})
	sessions.Start(ctx)
	defer sessions.Stop()

	collector := metrics.NewCollector(sessions, samplers, cfg.MetricsInterval)
	go collector.Start(ctx)
	defer collector.Stop()

	var limiter *middleware.RateLimiter
	if cfg.EnableRateLimit {
		limiter = middleware.NewRateLimiterFromConfig(cfg)
		defer limiter.Stop()
	}

	srv := server.New(cfg, api.Handler(api.Deps{
		Config:   cfg,
		Sessions: sessions,
		Hub:      hub,
		Limiter:  limiter,
		Caches:   caches,
	}))
	logger.Info("Starting redpull", "addr", srv.Addr(), "version", version)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		errorreporting.CaptureError(err)
	}

	if shutdownTracing != nil {
		tctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("Tracing shutdown incomplete", "error", err)
		}
	}
}
