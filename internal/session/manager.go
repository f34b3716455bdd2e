package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/metrics"
)

// Manager owns live sessions. Nothing is persisted; idle sessions expire.
type Manager struct {
	deps       Deps
	settings   Settings
	ttl        time.Duration
	max        int
	sweepEvery time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager builds a Manager from config.
func NewManager(cfg *config.Config, deps Deps) *Manager {
	return &Manager{
		deps:       deps,
		settings:   SettingsFromConfig(cfg),
		ttl:        cfg.SessionIdleTTL,
		max:        cfg.SessionMax,
		sweepEvery: cfg.SessionSweepEvery,
		now:        time.Now,
		sessions:   make(map[string]*Session),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Settings returns the knobs sessions are created with.
func (m *Manager) Settings() Settings { return m.settings }

// Create starts a new idle session.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.max > 0 && len(m.sessions) >= m.max {
		m.sweepLocked()
		if len(m.sessions) >= m.max {
			return nil, ErrLimit
		}
	}
	s := newSession(uuid.NewString(), m.deps, m.settings, m.now())
	m.sessions[s.id] = s
	return s, nil
}

// Get returns a live session and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Delete removes a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many went.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

func (m *Manager) sweepLocked() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		metrics.SessionsExpired.Add(float64(n))
	}
	return n
}

// Start sweeps expired sessions periodically until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	every := m.sweepEvery
	if every <= 0 {
		every = time.Minute
	}
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					logger.Info("expired idle sessions", "component", "session", "count", n, "remaining", m.Count())
				}
			}
		}
	}()
}

// Stop ends the sweeper started by Start and waits for it.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if m.started.Load() {
			<-m.done
		}
	})
}
