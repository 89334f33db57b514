package backoff

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Errors
var (
	ErrMaxAttempts = errors.New("max retry attempts reached")
)

// Default values for Config.
const (
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxAttempts = 4
)

// Retry records one scheduled attempt.
type Retry struct {
	Exponential time.Duration // Unjittered base^attempt delay
	Jittered    time.Duration // Delay actually waited
}

// RandomSource provides random values for jitter calculation.
type RandomSource interface {
	// Float64 returns a random float64 in [0.0, 1.0).
	Float64() float64
}

type defaultRandomSource struct{}

func (defaultRandomSource) Float64() float64 {
	return rand.Float64()
}

// DefaultRandomSource is backed by math/rand/v2.
var DefaultRandomSource RandomSource = defaultRandomSource{}

// JitterFunc turns an unjittered delay into the delay to wait. history holds
// every retry recorded before the current one.
type JitterFunc func(history []Retry, delay time.Duration, rng RandomSource) time.Duration

// FullJitter returns a delay uniformly distributed in [0, delay).
func FullJitter(_ []Retry, delay time.Duration, rng RandomSource) time.Duration {
	return time.Duration(float64(delay) * rng.Float64())
}

// Config configures retry behavior.
type Config struct {
	BaseDelay   time.Duration // Base of the exponential, in whole milliseconds
	Jitter      JitterFunc    // nil = FullJitter
	MaxAttempts int           // 0 = unlimited
	Listener    func(Retry)   // Called immediately before each wait
	MaxDelay    time.Duration // Clamp on the jittered delay (0 = no clamp)
	Random      RandomSource  // nil = DefaultRandomSource
	Delayer     Delayer       // nil = TimerDelayer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseDelay:   DefaultBaseDelay,
		Jitter:      FullJitter,
		MaxAttempts: DefaultMaxAttempts,
	}
}

func (c Config) jitter() JitterFunc {
	if c.Jitter == nil {
		return FullJitter
	}
	return c.Jitter
}

func (c Config) random() RandomSource {
	if c.Random == nil {
		return DefaultRandomSource
	}
	return c.Random
}

func (c Config) delayer() Delayer {
	if c.Delayer == nil {
		return TimerDelayer{}
	}
	return c.Delayer
}

// Exponential returns base^attempt, treating base as a count of milliseconds.
// Results that do not fit in a time.Duration saturate at math.MaxInt64.
func Exponential(base time.Duration, attempt int) time.Duration {
	ms := math.Pow(float64(base.Milliseconds()), float64(attempt))
	ns := ms * float64(time.Millisecond)
	if ns >= math.MaxInt64 || math.IsInf(ns, 0) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// History is the append-only retry log for one failure episode.
type History struct {
	mu      sync.Mutex
	retries []Retry
}

// Len returns the number of recorded attempts.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.retries)
}

// Attempts returns a copy of the recorded attempts.
func (h *History) Attempts() []Retry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Retry, len(h.retries))
	copy(out, h.retries)
	return out
}

// Reset clears the history after a successful connection.
func (h *History) Reset() {
	h.mu.Lock()
	h.retries = nil
	h.mu.Unlock()
}

// Next computes the retry for attempt Len()+1, records it and returns it.
// It returns ErrMaxAttempts without recording anything once the history
// holds MaxAttempts entries.
func (h *History) Next(cfg Config) (Retry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cfg.MaxAttempts > 0 && len(h.retries) >= cfg.MaxAttempts {
		return Retry{}, ErrMaxAttempts
	}

	expo := Exponential(cfg.BaseDelay, len(h.retries)+1)
	jittered := cfg.jitter()(h.retries, expo, cfg.random())
	if jittered < 0 {
		jittered = 0
	}
	if jittered > expo {
		jittered = expo
	}
	if cfg.MaxDelay > 0 && jittered > cfg.MaxDelay {
		jittered = cfg.MaxDelay
	}

	r := Retry{Exponential: expo, Jittered: jittered}
	h.retries = append(h.retries, r)
	return r, nil
}

// Backoff records the next attempt in history, notifies the listener and
// waits out the jittered delay.
func Backoff(ctx context.Context, cfg Config, history *History) (Retry, error) {
	r, err := history.Next(cfg)
	if err != nil {
		return Retry{}, err
	}

	if cfg.Listener != nil {
		cfg.Listener(r)
	}

	if err := cfg.delayer().Delay(ctx, r.Jittered); err != nil {
		return r, err
	}
	return r, nil
}
