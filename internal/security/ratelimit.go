package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate-limited event kinds.
const (
	KindMessage = "message"
	KindStream  = "stream"
)

// RateLimitConfig holds configurable per-client rate limits.
type RateLimitConfig struct {
	MaxClients     int `yaml:"max_clients"`
	MessagesPerMin int `yaml:"messages_per_min"`
	StreamsPerMin  int `yaml:"streams_per_min"`
}

// rateLimitConfigDefaults returns a config with sensible defaults.
func rateLimitConfigDefaults() RateLimitConfig {
	return RateLimitConfig{
		MaxClients:     32,
		MessagesPerMin: 240,
		StreamsPerMin:  60,
	}
}

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c RateLimitConfig) WithDefaults() RateLimitConfig {
	d := rateLimitConfigDefaults()
	if c.MaxClients <= 0 {
		c.MaxClients = d.MaxClients
	}
	if c.MessagesPerMin <= 0 {
		c.MessagesPerMin = d.MessagesPerMin
	}
	if c.StreamsPerMin <= 0 {
		c.StreamsPerMin = d.StreamsPerMin
	}
	return c
}

// RateLimiter implements sliding-window rate limiting for one client
// connection. Each bucket tracks timestamps of recent events within its
// window. The session hub creates one limiter per accepted client.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  RateLimitConfig
	now     func() time.Time
}

type bucket struct {
	window time.Duration
	limit  int
	events []time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
// Zero-value fields in cfg are replaced with defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg = cfg.WithDefaults()

	return &RateLimiter{
		config: cfg,
		now:    time.Now,
		buckets: map[string]*bucket{
			KindMessage: {
				window: time.Minute,
				limit:  cfg.MessagesPerMin,
			},
			KindStream: {
				window: time.Minute,
				limit:  cfg.StreamsPerMin,
			},
		},
	}
}

// Allow checks whether an event of the given kind is allowed.
// Returns nil if allowed, ErrRateLimited if the limit is exceeded.
func (rl *RateLimiter) Allow(kind string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		// Unknown kind = no limit configured.
		return nil
	}

	now := rl.now()
	b.evict(now)

	if len(b.events) >= b.limit {
		return ErrRateLimited
	}

	b.events = append(b.events, now)
	return nil
}

// MaxClients returns the configured maximum number of concurrent clients.
func (rl *RateLimiter) MaxClients() int {
	return rl.config.MaxClients
}

// evict removes events outside the sliding window.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	// Events are chronologically ordered; find the first inside the window.
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
