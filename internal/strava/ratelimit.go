package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava rate limits: 100 requests per 15 minutes, 1000 per day.

// RateLimiter tracks both Strava windows and blocks until a request fits.
type RateLimiter struct {
	mu sync.Mutex

	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a rate limiter with Strava's published limits.
func NewRateLimiter() *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		shortLimit:    100,
		shortResetsAt: now.Add(15 * time.Minute),
		dailyLimit:    1000,
		dailyResetsAt: now.Truncate(24 * time.Hour).Add(24 * time.Hour),
		minInterval:   150 * time.Millisecond,
	}
}

// Wait blocks until a request can be made without exceeding the limits.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()

	now := time.Now()
	if now.After(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(15 * time.Minute)
	}
	if now.After(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}

	var wait time.Duration
	if r.shortUsage >= r.shortLimit {
		wait = time.Until(r.shortResetsAt)
	} else if r.dailyUsage >= r.dailyLimit {
		wait = time.Until(r.dailyResetsAt)
	} else if since := now.Sub(r.lastRequest); since < r.minInterval {
		wait = r.minInterval - since
	}

	if wait > 0 {
		r.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		return r.Wait(ctx)
	}

	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = now
	r.mu.Unlock()
	return nil
}

// UpdateFromHeaders syncs usage with the X-RateLimit headers Strava returns
// on every response, so limits hold across process restarts.
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	usage := h.Get("X-RateLimit-Usage")
	limit := h.Get("X-RateLimit-Limit")
	if usage == "" || limit == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(usage); ok {
		r.shortUsage = short
		r.dailyUsage = daily
	}
	if short, daily, ok := parsePair(limit); ok {
		r.shortLimit = short
		r.dailyLimit = daily
	}
}

// Status returns how many requests remain in each window.
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}

// parsePair parses Strava's "short,daily" header format.
func parsePair(s string) (short, daily int, ok bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	short, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	daily, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	return short, daily, err1 == nil && err2 == nil
}
