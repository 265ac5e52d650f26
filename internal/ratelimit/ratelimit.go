// Package ratelimit bounds request frequency per source. Scheduled polling
// waits for a permit; manually triggered fetches get a retryable refusal
// with the remaining wait instead of blocking the caller.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"internwatch/internal/clock"
	"internwatch/internal/model"
)

// Limits configures a single source: a minimum wall-clock gap between
// requests plus an optional requests-per-window cap.
type Limits struct {
	MinDelay  time.Duration
	PerWindow int // 0 disables the windowed cap
	Window    time.Duration
}

type sourceState struct {
	limits    Limits
	window    *rate.Limiter // nil when PerWindow is 0
	lastGrant time.Time
	granted   bool // false until the first permit
}

// SourceLimiter is shared by the scheduler-driven pollers and manual fetches.
// All permit bookkeeping is behind one mutex.
type SourceLimiter struct {
	mu      sync.Mutex
	sources map[string]*sourceState
	clock   clock.Clock
}

// New creates an empty limiter. Sources must be registered with Configure
// before requesting permits.
func New(clk clock.Clock) *SourceLimiter {
	return &SourceLimiter{
		sources: make(map[string]*sourceState),
		clock:   clk,
	}
}

// Configure registers (or replaces) the limits for a source.
func (l *SourceLimiter) Configure(source string, limits Limits) {
	st := &sourceState{limits: limits}
	if limits.PerWindow > 0 && limits.Window > 0 {
		// Token bucket sized to the window cap: PerWindow tokens refilled
		// over one Window.
		st.window = rate.NewLimiter(rate.Limit(float64(limits.PerWindow)/limits.Window.Seconds()), limits.PerWindow)
	}
	l.mu.Lock()
	l.sources[source] = st
	l.mu.Unlock()
}

func (l *SourceLimiter) state(source string) (*sourceState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.sources[source]
	if !ok {
		return nil, fmt.Errorf("rate limiter: unknown source %q", source)
	}
	return st, nil
}

// Wait blocks until a permit for source is available: the minimum
// inter-request delay must have elapsed and the windowed cap must grant a
// token. Scheduled polling uses this path so a cycle is delayed, never
// skipped. Returns an error only if ctx is cancelled while waiting.
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	st, err := l.state(source)
	if err != nil {
		return err
	}

	for {
		l.mu.Lock()
		now := l.clock.Now()
		remaining := l.minDelayRemaining(st, now)
		if remaining <= 0 {
			st.lastGrant = now
			st.granted = true
			l.mu.Unlock()
			break
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter wait for %s: %w", source, ctx.Err())
		case <-l.clock.After(remaining):
			// Both channels can be ready at once; cancellation wins.
			if ctx.Err() != nil {
				return fmt.Errorf("rate limiter wait for %s: %w", source, ctx.Err())
			}
		}
	}

	if st.window != nil {
		if err := st.window.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait for %s: %w", source, err)
		}
	}
	return nil
}

// TryAcquire attempts a permit without blocking. On violation it returns a
// RateLimitError carrying how long the caller should wait.
func (l *SourceLimiter) TryAcquire(source string) error {
	st, err := l.state(source)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if remaining := l.minDelayRemaining(st, now); remaining > 0 {
		return &model.RateLimitError{Source: source, RetryAfter: remaining}
	}

	if st.window != nil && !st.window.Allow() {
		// Reserve and cancel to learn when the next token frees up.
		r := st.window.Reserve()
		delay := r.Delay()
		r.Cancel()
		return &model.RateLimitError{Source: source, RetryAfter: delay}
	}

	st.lastGrant = now
	st.granted = true
	return nil
}

// minDelayRemaining reports how long until the min-delay constraint clears.
// Caller holds l.mu.
func (l *SourceLimiter) minDelayRemaining(st *sourceState, now time.Time) time.Duration {
	if !st.granted {
		return 0
	}
	return st.limits.MinDelay - now.Sub(st.lastGrant)
}
