package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/metrics"
)

// AttemptInfo describes a single attempt outcome.
type AttemptInfo struct {
	Attempt int
	Method  string
	URL     string
	Status  int
	Err     error
	Wait    time.Duration
}

// Observer callback to report attempt telemetry.
type Observer func(info AttemptInfo)

// BuildFunc creates a fresh request for each attempt.
type BuildFunc func(ctx context.Context) (*http.Request, error)

// Client sends outbound requests through an instrumented transport. With the
// default MaxAttempts of 1 a request is sent exactly once; 429 and 5xx responses
// are returned to the caller untouched.
type Client struct {
	HTTP        *http.Client
	MaxAttempts int
	RetryBase   time.Duration
	Limiter     *rate.Limiter // nil disables pacing
	LogRetries  bool
	Observer    Observer
}

// New builds a Client from configuration.
func New(cfg *config.Config) *Client {
	c := &Client{
		HTTP: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		MaxAttempts: cfg.HTTPMaxRetries,
		RetryBase:   cfg.HTTPRetryBase,
		LogRetries:  cfg.LogHTTPRetries,
	}
	if cfg.UpstreamRPS > 0 {
		burst := cfg.UpstreamBurst
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), burst)
	}
	return c
}

// Do sends the request built by build. Pacing waits and backoff sleeps honour ctx.
func (c *Client) Do(ctx context.Context, build BuildFunc) (*http.Response, error) {
	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	log := logger.FromContext(ctx).With("component", "httpx")

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.HTTP.Do(req)
		info := AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String()}

		var wait time.Duration
		if err != nil {
			metrics.UpstreamHTTPRequests.WithLabelValues("error").Inc()
			info.Err = err
			if attempt == maxAttempts || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.observe(info)
				return nil, err
			}
			wait = c.backoff(attempt)
		} else {
			info.Status = resp.StatusCode
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				metrics.UpstreamHTTPRequests.WithLabelValues("success").Inc()
				if c.LogRetries && attempt > 1 {
					log.Info("request succeeded after retry", "attempt", attempt, "url", info.URL, "status", resp.StatusCode)
				}
				c.observe(info)
				return resp, nil
			}
			if attempt == maxAttempts {
				metrics.UpstreamHTTPRequests.WithLabelValues("failure").Inc()
				c.observe(info)
				return resp, nil
			}
			metrics.UpstreamHTTPRequests.WithLabelValues("retry").Inc()
			wait = retryAfter(resp.Header.Get("Retry-After"))
			if wait > 0 {
				metrics.UpstreamRetryAfterWaits.Observe(wait.Seconds())
			} else {
				wait = c.backoff(attempt)
			}
			resp.Body.Close()
		}

		metrics.UpstreamHTTPRetries.Inc()
		info.Wait = wait
		c.observe(info)
		if c.LogRetries {
			log.Info("retrying request", "attempt", attempt, "url", info.URL, "status", info.Status, "error", info.Err, "wait", wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, errors.New("exhausted retries")
}

func (c *Client) pace(ctx context.Context) error {
	if c.Limiter == nil {
		return nil
	}
	if c.Limiter.Tokens() < 1 {
		metrics.UpstreamRateLimitWaits.Inc()
	}
	return c.Limiter.Wait(ctx)
}

func (c *Client) observe(info AttemptInfo) {
	if c.Observer != nil {
		c.Observer(info)
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	jitter := time.Duration(rand.Intn(200)) * time.Millisecond
	return c.RetryBase*time.Duration(attempt) + jitter
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
