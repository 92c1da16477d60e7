// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"inkpress/internal/metrics"
)

// RateLimiter admits at most limit requests per client IP within a sliding
// window. The server keeps one for comment submission and one for sign-in.
type RateLimiter struct {
	name   string
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time // oldest first

	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter labelled name in logs and metrics.
// Idle clients are forgotten by a background sweep until Stop is called.
func NewRateLimiter(name string, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		name:   name,
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
		done:   make(chan struct{}),
	}
	go rl.sweepLoop(max(window, time.Minute))
	return rl
}

func (rl *RateLimiter) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// Stop ends the sweep goroutine. Calling it again is a no-op.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// live drops timestamps that fell out of the window ending at now.
func (rl *RateLimiter) live(ts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// allow records a hit for key. A refused hit is not recorded; the returned
// duration is how long until the oldest hit leaves the window.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	ts := rl.live(rl.hits[key], now)
	if len(ts) >= rl.limit {
		rl.hits[key] = ts
		return false, ts[0].Add(rl.window).Sub(now)
	}
	rl.hits[key] = append(ts, now)
	return true, 0
}

func (rl *RateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, ts := range rl.hits {
		if len(rl.live(ts, now)) == 0 {
			delete(rl.hits, key)
		}
	}
}

// tracked reports how many clients the limiter currently remembers.
func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.hits)
}

// Middleware answers 429 with Retry-After (whole seconds, rounded up) once
// the client IP is over its limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ok, retry := rl.allow(ip); !ok {
			metrics.RateLimited.WithLabelValues(rl.name).Inc()
			slog.Warn("rate limited", "limiter", rl.name, "remote", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the proxy headers (leftmost X-Forwarded-For entry, then
// X-Real-IP) and falls back to the host part of RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
