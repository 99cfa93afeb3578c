package merinfo

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// rateLimiter enforces a minimum spacing between outbound fetches.
// Consecutive errors scale the required spacing upward so the scraper
// backs off a struggling site instead of hammering it.
//
// Not safe for concurrent use, the owning client serializes access.
type rateLimiter struct {
	minDelay     time.Duration
	maxDelay     time.Duration
	lastRequest  time.Time
	requestCount int64
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

func newRateLimiter(minDelay, maxDelay time.Duration) *rateLimiter {
	return &rateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// acquire blocks until the next fetch may go out. The last-request
// time and the request counter are updated on every acquisition, even
// if the fetch that follows fails.
func (r *rateLimiter) acquire(ctx context.Context, errorCount int) error {
	base := r.minDelay
	if errorCount > 0 {
		base = time.Duration(float64(base) * (1 + float64(errorCount)*0.5))
	}

	if r.now().Sub(r.lastRequest) < base {
		delay := uniformDuration(base, r.maxDelay)
		slog.DebugContext(ctx, "rate limiting", "delay", delay)
		err := r.sleep(ctx, delay)
		if err != nil {
			return err
		}
	}

	r.lastRequest = r.now()
	r.requestCount++
	return nil
}

func uniformDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

// sleepContext sleeps for d but returns early when ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
