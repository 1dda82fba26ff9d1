package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterStore_Basic(t *testing.T) {
	store := NewRateLimiterStore(1, 2)

	limiter := store.GetLimiter("soil-1")
	if limiter == nil {
		t.Fatal("expected limiter, got nil")
	}
	if limiter.Limit() != 1 {
		t.Errorf("expected limit 1, got %v", limiter.Limit())
	}
}

func TestRateLimiterStore_CustomLimit(t *testing.T) {
	store := NewRateLimiterStore(1, 2)

	store.SetLimiter("lux-2", 5, 10)
	limiter := store.GetLimiter("lux-2")

	if limiter.Limit() != 5 {
		t.Errorf("expected limit 5, got %v", limiter.Limit())
	}
	if limiter.Burst() != 10 {
		t.Errorf("expected burst 10, got %v", limiter.Burst())
	}
}

func TestRateLimiterStore_Concurrency(t *testing.T) {
	store := NewRateLimiterStore(10, 5)
	sensorID := uuid.NewString()

	var wg sync.WaitGroup
	limiters := make(chan any, 100)

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiters <- store.GetLimiter(sensorID)
		}()
	}

	wg.Wait()
	close(limiters)

	first := store.GetLimiter(sensorID)
	for l := range limiters {
		assert.Same(t, first, l)
	}
}

func TestRateLimiter_Enforcement(t *testing.T) {
	store := NewRateLimiterStore(2, 2) // 2 events/sec

	sensorID := uuid.NewString()

	if !store.Allow(sensorID) || !store.Allow(sensorID) {
		t.Fatal("expected first two calls to be allowed")
	}

	if store.Allow(sensorID) {
		t.Error("expected third call to be rate limited")
	}

	// Wait for refill
	time.Sleep(600 * time.Millisecond)
	if !store.Allow(sensorID) {
		t.Error("expected one token to be available after refill")
	}
}

func TestRateLimiter_NilStoreAllows(t *testing.T) {
	var store *RateLimiterStore
	assert.True(t, store.Allow("anything"))
}

func TestRateLimiterStore_NilAllowsEverything(t *testing.T) {
	var store *RateLimiterStore
	for range 5 {
		assert.True(t, store.Allow("soil-1"))
	}

	blocked := NewRateLimiterStore(0, 0)
	assert.False(t, blocked.Allow("soil-1"))
}
