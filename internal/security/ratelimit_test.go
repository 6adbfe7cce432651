package security

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 5})

	for i := range 5 {
		if err := rl.Allow(KindMessage); err != nil {
			t.Fatalf("Allow(%d) returned error: %v", i, err)
		}
	}

	// 6th should be denied.
	if err := rl.Allow(KindMessage); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 2})
	rl.now = func() time.Time { return now }

	// Fill the bucket.
	_ = rl.Allow(KindMessage)
	_ = rl.Allow(KindMessage)

	// Should be denied.
	if err := rl.Allow(KindMessage); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit")
	}

	// Advance past the window.
	now = now.Add(61 * time.Second)

	// Should be allowed again.
	if err := rl.Allow(KindMessage); err != nil {
		t.Fatalf("expected allow after window, got %v", err)
	}
}

func TestRateLimiter_UnknownKind(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})

	// Unknown kind should always be allowed.
	if err := rl.Allow("unknown_kind"); err != nil {
		t.Fatalf("expected nil for unknown kind, got %v", err)
	}
}

func TestRateLimiter_StreamBucket(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{StreamsPerMin: 3})

	for range 3 {
		if err := rl.Allow(KindStream); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := rl.Allow(KindStream); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit for stream starts")
	}
}

func TestRateLimiter_BucketsAreIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 1, StreamsPerMin: 1})

	if err := rl.Allow(KindMessage); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rl.Allow(KindMessage); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected message limit")
	}

	// The stream bucket is untouched by message traffic.
	if err := rl.Allow(KindStream); err != nil {
		t.Fatalf("stream bucket drained by message traffic: %v", err)
	}
}

func TestRateLimiter_MaxClients(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MaxClients: 8})
	if rl.MaxClients() != 8 {
		t.Fatalf("MaxClients() = %d, want 8", rl.MaxClients())
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})

	if rl.config.MaxClients != 32 {
		t.Errorf("default MaxClients = %d, want 32", rl.config.MaxClients)
	}
	if rl.config.MessagesPerMin != 240 {
		t.Errorf("default MessagesPerMin = %d, want 240", rl.config.MessagesPerMin)
	}
	if rl.config.StreamsPerMin != 60 {
		t.Errorf("default StreamsPerMin = %d, want 60", rl.config.StreamsPerMin)
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 1000})

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rl.Allow(KindMessage)
		}()
	}
	wg.Wait()
}
