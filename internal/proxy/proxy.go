// Package proxy talks to the companion worker that resolves short-form video
// slugs and recovers gallery images Reddit no longer describes.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/redpull/internal/cache"
	"github.com/onnwee/redpull/internal/circuitbreaker"
	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/httpx"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/metrics"
	"github.com/onnwee/redpull/internal/tracing"
)

// ErrUnresolved means the worker answered but had nothing usable.
var ErrUnresolved = errors.New("proxy: unresolved")

// Client calls the worker at a base URL.
type Client struct {
	base    string
	http    *httpx.Client
	cache   cache.Cache
	breaker *circuitbreaker.CircuitBreaker
	ua      string
}

// New returns nil when no worker is configured.
func New(cfg *config.Config, hc *httpx.Client, c cache.Cache) *Client {
	if cfg.ProxyURL == "" {
		return nil
	}
	return &Client{
		base:  cfg.ProxyURL,
		http:  hc,
		cache: c,
		ua:    cfg.UserAgent,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "proxy",
			FailureThreshold: cfg.ProxyBreakerThreshold,
			Timeout:          cfg.ProxyBreakerTimeout,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrUnresolved) || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// ResolveSlug returns the mp4 URL for a short-form video slug.
func (c *Client) ResolveSlug(ctx context.Context, slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return "", ErrUnresolved
	}
	key := "slug:" + slug
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			metrics.ProxyRequests.WithLabelValues("slug", "cached").Inc()
			return string(v), nil
		}
	}

	var body struct {
		MP4 string `json:"mp4"`
	}
	if err := c.getJSON(ctx, "slug", c.base+"?id="+url.QueryEscape(slug), &body); err != nil {
		return "", err
	}
	if body.MP4 == "" {
		metrics.ProxyRequests.WithLabelValues("slug", "unresolved").Inc()
		return "", ErrUnresolved
	}
	if c.cache != nil {
		c.cache.Set(key, []byte(body.MP4), 0)
	}
	return body.MP4, nil
}

// GalleryImages asks the worker to list the images of a gallery post.
func (c *Client) GalleryImages(ctx context.Context, postURL string) ([]string, error) {
	var body struct {
		Images []string `json:"images"`
	}
	if err := c.getJSON(ctx, "gallery", c.base+"/gallery?url="+url.QueryEscape(postURL), &body); err != nil {
		return nil, err
	}
	images := body.Images[:0]
	for _, u := range body.Images {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	if len(images) == 0 {
		metrics.ProxyRequests.WithLabelValues("gallery", "unresolved").Inc()
		return nil, ErrUnresolved
	}
	return images, nil
}

func (c *Client) getJSON(ctx context.Context, op, reqURL string, dst any) error {
	ctx, span := tracing.StartSpan(ctx, "proxy."+op)
	defer span.End()
	span.SetAttributes(attribute.String("proxy.operation", op))

	err := c.breaker.Call(func() error {
		resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("User-Agent", c.ua)
			return req, nil
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrUnresolved
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return fmt.Errorf("proxy %s: status %d", op, resp.StatusCode)
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst); err != nil {
			return fmt.Errorf("%w: decode %s response: %v", ErrUnresolved, op, err)
		}
		return nil
	})

	switch {
	case err == nil:
		metrics.ProxyRequests.WithLabelValues(op, "ok").Inc()
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		metrics.ProxyRequests.WithLabelValues(op, "circuit_open").Inc()
	case errors.Is(err, ErrUnresolved):
		metrics.ProxyRequests.WithLabelValues(op, "unresolved").Inc()
	default:
		metrics.ProxyRequests.WithLabelValues(op, "error").Inc()
		tracing.RecordError(span, err)
		logger.FromContext(ctx).Warn("proxy request failed", "component", "proxy", "operation", op, "error", err)
	}
	return err
}
