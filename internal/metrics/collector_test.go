package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSessions struct{ n int }

func (f fakeSessions) Count() int { return f.n }

type fakeCache struct{ items, cost int64 }

func (f fakeCache) Len() int64  { return f.items }
func (f fakeCache) Cost() int64 { return f.cost }

func TestCollectorSamplesGauges(t *testing.T) {
	c := NewCollector(fakeSessions{n: 7}, map[string]CacheSampler{"proxy": fakeCache{items: 3, cost: 120}}, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(SessionsActive); got != 7 {
		t.Errorf("SessionsActive = %v, want 7", got)
	}
	if got := testutil.ToFloat64(CacheItems.WithLabelValues("proxy")); got != 3 {
		t.Errorf("CacheItems = %v, want 3", got)
	}
	if got := testutil.ToFloat64(CacheSize.WithLabelValues("proxy")); got != 120 {
		t.Errorf("CacheSize = %v, want 120", got)
	}
}

func TestCollectorStopsOnContextCancel(t *testing.T) {
	c := NewCollector(fakeSessions{}, nil, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after context cancellation")
	}
}

func TestCollectorStopIsIdempotent(t *testing.T) {
	c := NewCollector(nil, nil, 0)
	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()
	c.Stop()
	c.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}
