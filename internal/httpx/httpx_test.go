package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/onnwee/redpull/internal/config"
)

func getter(url string) BuildFunc {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDo_DefaultIsSingleAttempt(t *testing.T) {
	os.Unsetenv("HTTP_MAX_RETRIES")
	config.ResetForTest()
	t.Cleanup(config.ResetForTest)

	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := New(config.Load())
	resp, err := c.Do(context.Background(), getter(ts.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 to be returned as-is, got %d", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", n)
	}
}

func TestDo_RetryAfterSecondsWhenEnabled(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := &Client{HTTP: ts.Client(), MaxAttempts: 2, RetryBase: time.Millisecond}
	start := time.Now()
	resp, err := c.Do(context.Background(), getter(ts.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if time.Since(start) < 900*time.Millisecond {
		t.Fatalf("expected to wait for Retry-After; waited %v", time.Since(start))
	}
}

func TestDo_ObserverAndBackoffOn5xx(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	var observed []AttemptInfo
	c := &Client{
		HTTP:        ts.Client(),
		MaxAttempts: 3,
		RetryBase:   5 * time.Millisecond,
		Observer:    func(info AttemptInfo) { observed = append(observed, info) },
	}
	resp, err := c.Do(context.Background(), getter(ts.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if len(observed) != 3 {
		t.Fatalf("expected 3 observed attempts, got %d", len(observed))
	}
	if observed[0].Wait <= 0 || observed[0].Status != http.StatusInternalServerError {
		t.Fatalf("expected first attempt to record a wait after a 500, got %+v", observed[0])
	}
}

func TestDo_CancelDuringBackoff(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := &Client{HTTP: ts.Client(), MaxAttempts: 3, RetryBase: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, getter(ts.URL))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDo_PacingHonoursContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := &Client{HTTP: ts.Client(), Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}
	resp, err := c.Do(context.Background(), getter(ts.URL))
	if err != nil {
		t.Fatalf("first request should use the burst token: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Do(ctx, getter(ts.URL)); err == nil {
		t.Fatal("expected second request to fail waiting for the limiter")
	}
}

func TestRetryAfter(t *testing.T) {
	if d := retryAfter("3"); d != 3*time.Second {
		t.Errorf("retryAfter(3) = %v", d)
	}
	if d := retryAfter(""); d != 0 {
		t.Errorf("retryAfter(empty) = %v", d)
	}
	if d := retryAfter("garbage"); d != 0 {
		t.Errorf("retryAfter(garbage) = %v", d)
	}
}
