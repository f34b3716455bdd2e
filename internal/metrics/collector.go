package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/onnwee/redpull/internal/logger"
)

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Count() int
}

// CacheSampler reports item count and total cost of a cache.
type CacheSampler interface {
	Len() int64
	Cost() int64
}

// Collector periodically samples gauges that are not updated inline.
type Collector struct {
	sessions SessionCounter
	caches   map[string]CacheSampler
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewCollector creates a new metrics collector. caches may be nil.
func NewCollector(sessions SessionCounter, caches map[string]CacheSampler, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		sessions: sessions,
		caches:   caches,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the collection loop until Stop is called or ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector. It is safe to call more than once.
func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Collector) collect() {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("metrics collection panicked", "panic", r)
			MetricsCollectionErrors.WithLabelValues("collector").Inc()
		}
	}()
	if c.sessions != nil {
		SessionsActive.Set(float64(c.sessions.Count()))
	}
	for name, cs := range c.caches {
		if cs == nil {
			MetricsCollectionErrors.WithLabelValues("cache").Inc()
			continue
		}
		CacheItems.WithLabelValues(name).Set(float64(cs.Len()))
		CacheSize.WithLabelValues(name).Set(float64(cs.Cost()))
	}
}
