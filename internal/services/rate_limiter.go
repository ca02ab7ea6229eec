package services

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// WindowState is the counter as seen by the attempt that touched it.
// WindowStart may be zero when the store does not report it for allowed hits.
type WindowState struct {
	Count       int
	WindowStart time.Time
}

// WindowStore is an atomic check-and-increment keyed by identity. Hit must
// record the attempt and report allowed=true in one step, or leave the counter
// untouched and report allowed=false. A window older than window is reset.
type WindowStore interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (WindowState, bool, error)
}

// RateLimiter is a fixed window limiter: at most limit reports per identity per
// window, with the window starting at the identity's first report.
type RateLimiter struct {
	store  WindowStore
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(store WindowStore, limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	return &RateLimiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *RateLimiter) Limit() int { return l.limit }

func (l *RateLimiter) Window() time.Duration { return l.window }

// Allow records one report attempt against every identity and returns a
// *RateLimitedError as soon as one of them has used up its window. Keys are
// checked in order, so put the narrowest identity first: a denied key leaves
// its counter untouched, but keys before it have already counted the attempt.
func (l *RateLimiter) Allow(ctx context.Context, identities ...string) error {
	if len(identities) == 0 {
		return invalid("identity", "is required")
	}
	for _, identity := range identities {
		if strings.TrimSpace(identity) == "" {
			return invalid("identity", "is required")
		}
	}

	now := l.now()
	for _, identity := range identities {
		state, allowed, err := l.store.Hit(ctx, strings.TrimSpace(identity), l.limit, l.window, now)
		if err != nil {
			return fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			return &RateLimitedError{RetryAfter: l.retryAfter(state, now)}
		}
	}
	return nil
}

func (l *RateLimiter) retryAfter(state WindowState, now time.Time) time.Duration {
	if state.WindowStart.IsZero() {
		return 0
	}
	if d := state.WindowStart.Add(l.window).Sub(now); d > 0 {
		return d
	}
	return 0
}
