package scheduler

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/ratelimit"

	"nasdaq-heatmap/internal/config"
)

// RateLimitTracker paces outgoing requests and honours provider rate limits.
// Pacing comes from a token bucket; a 429 response opens a cool-down window
// during which Wait blocks every caller.
type RateLimitTracker struct {
	mu            sync.RWMutex
	limiter       ratelimit.Limiter
	cooldownUntil time.Time
	requests      int
	rateLimitHits int
	remaining     int // From X-RateLimit-Remaining, -1 when unknown
	now           func() time.Time
}

// NewRateLimitTracker creates a tracker allowing perSecond requests per
// second. perSecond <= 0 disables pacing.
func NewRateLimitTracker(perSecond int) *RateLimitTracker {
	limiter := ratelimit.NewUnlimited()
	if perSecond > 0 {
		limiter = ratelimit.New(perSecond, ratelimit.WithoutSlack)
	}
	return &RateLimitTracker{
		limiter:   limiter,
		remaining: -1,
		now:       time.Now,
	}
}

// Wait blocks until a request may be sent or ctx is done
func (rlt *RateLimitTracker) Wait(ctx context.Context) error {
	for {
		rlt.mu.RLock()
		delay := rlt.cooldownUntil.Sub(rlt.now())
		rlt.mu.RUnlock()

		if delay <= 0 {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	rlt.limiter.Take()

	rlt.mu.Lock()
	rlt.requests++
	rlt.mu.Unlock()
	return nil
}

// RecordHeaders updates the remaining budget from response headers
func (rlt *RateLimitTracker) RecordHeaders(headers map[string]string) {
	remaining, ok := headers["X-RateLimit-Remaining"]
	if !ok {
		return
	}
	if val, err := strconv.Atoi(strings.TrimSpace(remaining)); err == nil && val >= 0 {
		rlt.mu.Lock()
		rlt.remaining = val
		rlt.mu.Unlock()
	}
}

// HandleRateLimitError handles 429 Too Many Requests.
// retryAfter is the raw Retry-After header: delay-seconds or an HTTP date.
func (rlt *RateLimitTracker) HandleRateLimitError(retryAfter string) time.Duration {
	rlt.mu.Lock()
	defer rlt.mu.Unlock()

	now := rlt.now()
	wait := parseRetryAfter(retryAfter, now)
	if wait <= 0 {
		wait = config.DefaultRateLimitCooldown
	}
	if wait > config.MaxRateLimitCooldown {
		wait = config.MaxRateLimitCooldown
	}

	rlt.rateLimitHits++
	if until := now.Add(wait); until.After(rlt.cooldownUntil) {
		rlt.cooldownUntil = until
	}
	return wait
}

// IsRateLimited checks if we're currently inside a cool-down window
func (rlt *RateLimitTracker) IsRateLimited() bool {
	rlt.mu.RLock()
	defer rlt.mu.RUnlock()
	return rlt.now().Before(rlt.cooldownUntil)
}

// Stats returns request count, 429 count and the last known remaining budget
func (rlt *RateLimitTracker) Stats() (requests, rateLimitHits, remaining int) {
	rlt.mu.RLock()
	defer rlt.mu.RUnlock()
	return rlt.requests, rlt.rateLimitHits, rlt.remaining
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := time.Parse(time.RFC1123, value); err == nil {
		return at.Sub(now)
	}
	return 0
}
