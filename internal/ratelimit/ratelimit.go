// Package ratelimit provides in-memory, per-source-address admission control
// for new realtime connections.
package ratelimit

import (
	"errors"
	"log"
	"sync"
	"time"
)

// ErrRateLimited is returned when a source address has exceeded its
// connection quota for the current window.
var ErrRateLimited = errors.New("rate limit exceeded")

const (
	// DefaultLimit is the number of connection attempts allowed per window.
	DefaultLimit = 10

	// DefaultWindow is the length of the counting window.
	DefaultWindow = 60 * time.Second

	// DefaultSweepInterval is how often expired windows are dropped.
	DefaultSweepInterval = 60 * time.Second
)

type entry struct {
	count       int
	windowStart time.Time
}

// Limiter counts connection attempts per source address inside a fixed
// window. All state lives in process memory and is recreated empty on
// restart.
type Limiter struct {
	mu     sync.Mutex
	seen   map[string]*entry
	limit  int
	window time.Duration

	now func() time.Time
}

// NewLimiter creates a limiter allowing limit attempts per window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		seen:   make(map[string]*entry),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a connection attempt from addr. It returns ErrRateLimited
// when the address has used up its quota inside the current window. Once the
// window has elapsed the counter restarts at one.
func (l *Limiter) Allow(addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.seen[addr]
	if !ok {
		l.seen[addr] = &entry{count: 1, windowStart: now}
		return nil
	}

	if now.Sub(e.windowStart) > l.window {
		e.count = 1
		e.windowStart = now
		return nil
	}

	if e.count >= l.limit {
		log.Printf("[RateLimit] %s exceeded connection limit (%d per %s)", addr, l.limit, l.window)
		return ErrRateLimited
	}

	e.count++
	return nil
}

// Sweep drops entries whose window has expired, bounding memory independent
// of traffic patterns.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for addr, e := range l.seen {
		if now.Sub(e.windowStart) > l.window {
			delete(l.seen, addr)
		}
	}
}

// RunSweeper calls Sweep on a fixed interval until done is closed.
func (l *Limiter) RunSweeper(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-done:
			return
		}
	}
}
