package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := New(Config{Name: "test", FailureThreshold: 3, SuccessThreshold: 2, Timeout: time.Minute})
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestCircuitBreakerStaysClosedOnSuccess(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("Expected Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Expected boom, got: %v", err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected Open, got %v", cb.GetState())
	}
	called := false
	if err := cb.Call(func() error { called = true; return nil }); err != ErrCircuitOpen {
		t.Fatalf("Expected ErrCircuitOpen, got: %v", err)
	}
	if called {
		t.Fatal("fn must not run while open")
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errBoom })
	}

	clock = clock.Add(2 * time.Minute)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("Expected trial call to run, got %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("Expected HalfOpen after one success, got %v", cb.GetState())
	}
	cb.Call(func() error { return nil })
	if cb.GetState() != StateClosed {
		t.Fatalf("Expected Closed after two successes, got %v", cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errBoom })
	}
	clock = clock.Add(2 * time.Minute)
	cb.Call(func() error { return errBoom })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected Open after half-open failure, got %v", cb.GetState())
	}
}

func TestCircuitBreakerIsSuccessful(t *testing.T) {
	notFound := errors.New("not found")
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		IsSuccessful:     func(err error) bool { return err == nil || errors.Is(err, notFound) },
	})
	for i := 0; i < 5; i++ {
		cb.Call(func() error { return notFound })
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("answers classified as successful must not trip the breaker, got %v", cb.GetState())
	}
}

func TestCircuitBreakerConcurrentCalls(t *testing.T) {
	cb := New(Config{Name: "test", FailureThreshold: 1000})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cb.Call(func() error {
				if i%2 == 0 {
					return errBoom
				}
				return nil
			})
		}(i)
	}
	wg.Wait()
	if cb.GetState() != StateClosed {
		t.Fatalf("Expected Closed, got %v", cb.GetState())
	}
}

func TestStateString(t *testing.T) {
	if StateHalfOpen.String() != "half-open" || StateOpen.String() != "open" {
		t.Fatal("unexpected state names")
	}
}
