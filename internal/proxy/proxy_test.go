package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onnwee/redpull/internal/cache"
	"github.com/onnwee/redpull/internal/circuitbreaker"
	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/httpx"
)

func newTestClient(ts *httptest.Server, c cache.Cache) *Client {
	cfg := &config.Config{
		ProxyURL:              ts.URL,
		ProxyBreakerThreshold: 2,
		ProxyBreakerTimeout:   time.Hour,
		UserAgent:             "redpull-test",
	}
	return New(cfg, &httpx.Client{HTTP: ts.Client()}, c)
}

func TestNewWithoutURL(t *testing.T) {
	if New(&config.Config{}, nil, nil) != nil {
		t.Fatal("expected nil client when no worker is configured")
	}
}

func TestResolveSlugCachesPositiveResults(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Query().Get("id") != "happyslug" {
			t.Errorf("unexpected id %q", r.URL.Query().Get("id"))
		}
		fmt.Fprint(w, `{"mp4":"https://media.example.com/happyslug.mp4"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts, cache.NewMockCache())
	for i := 0; i < 3; i++ {
		got, err := c.ResolveSlug(context.Background(), "HappySlug")
		if err != nil {
			t.Fatalf("ResolveSlug: %v", err)
		}
		if got != "https://media.example.com/happyslug.mp4" {
			t.Fatalf("got %q", got)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}
}

func TestResolveSlugUnresolved(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"gone"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts, cache.NewMockCache())
	if _, err := c.ResolveSlug(context.Background(), "missing"); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if _, err := c.ResolveSlug(context.Background(), "  "); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved for empty slug, got %v", err)
	}
}

func TestGalleryImages(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gallery" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("url") != "https://www.reddit.com/gallery/abc" {
			t.Errorf("unexpected url param %q", r.URL.Query().Get("url"))
		}
		fmt.Fprint(w, `{"images":["https://i.redd.it/1.jpg",""," https://i.redd.it/2.png "]}`)
	}))
	defer ts.Close()

	images, err := newTestClient(ts, nil).GalleryImages(context.Background(), "https://www.reddit.com/gallery/abc")
	if err != nil {
		t.Fatalf("GalleryImages: %v", err)
	}
	if len(images) != 2 || images[1] != "https://i.redd.it/2.png" {
		t.Fatalf("images = %v", images)
	}
}

func TestGalleryImagesEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"images":[]}`)
	}))
	defer ts.Close()

	if _, err := newTestClient(ts, nil).GalleryImages(context.Background(), "https://www.reddit.com/gallery/x"); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts, nil)
	for i := 0; i < 2; i++ {
		if _, err := c.ResolveSlug(context.Background(), "slug"); err == nil {
			t.Fatal("expected error")
		}
	}
	_, err := c.ResolveSlug(context.Background(), "slug")
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", n)
	}
}

func TestUnresolvedDoesNotTripBreaker(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(ts, nil)
	for i := 0; i < 5; i++ {
		if _, err := c.ResolveSlug(context.Background(), "slug"); !errors.Is(err, ErrUnresolved) {
			t.Fatalf("call %d: expected ErrUnresolved, got %v", i, err)
		}
	}
}
