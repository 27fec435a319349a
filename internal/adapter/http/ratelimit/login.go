// Package ratelimit throttles login attempts per client address.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Config struct {
	// MaxAttempts is how many attempts a client may make per Window before
	// being blocked for BlockFor.
	MaxAttempts int
	Window      time.Duration
	BlockFor    time.Duration
	Backoff     *Backoff
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		BlockFor:    30 * time.Minute,
		Backoff:     NewBackoff(500*time.Millisecond, 10*time.Second, 2.0),
	}
}

type client struct {
	attempts     int
	windowStart  time.Time
	blockedUntil time.Time
	failures     int
	notBefore    time.Time
}

// Limiter combines a per-window attempt cap with an exponential delay after
// each failed login.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	cfg     Config
	now     func() time.Time
}

func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		clients: make(map[string]*client),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Allow records an attempt and reports whether it may proceed. When it may
// not, the returned duration is how long the client should wait.
func (l *Limiter) Allow(clientID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[clientID]
	if !ok {
		c = &client{windowStart: now}
		l.clients[clientID] = c
	}

	if now.Before(c.blockedUntil) {
		return false, c.blockedUntil.Sub(now)
	}
	if now.Before(c.notBefore) {
		return false, c.notBefore.Sub(now)
	}

	if now.Sub(c.windowStart) > l.cfg.Window {
		c.attempts = 0
		c.windowStart = now
	}
	c.attempts++

	if c.attempts > l.cfg.MaxAttempts {
		c.blockedUntil = now.Add(l.cfg.BlockFor)
		return false, l.cfg.BlockFor
	}
	return true, 0
}

// Failure records a failed login and returns the delay imposed before the
// client's next attempt.
func (l *Limiter) Failure(clientID string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[clientID]
	if !ok {
		c = &client{windowStart: l.now()}
		l.clients[clientID] = c
	}
	c.failures++

	var delay time.Duration
	if l.cfg.Backoff != nil {
		delay = l.cfg.Backoff.Duration(c.failures)
	}
	c.notBefore = l.now().Add(delay)
	return delay
}

// Success forgets everything about the client.
func (l *Limiter) Success(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, clientID)
}

// Prune drops clients that have been quiet for two windows and are not
// blocked. It returns how many were dropped.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for id, c := range l.clients {
		if now.Sub(c.windowStart) > 2*l.cfg.Window && now.After(c.blockedUntil) && now.After(c.notBefore) {
			delete(l.clients, id)
			n++
		}
	}
	return n
}

// Run prunes stale clients every minute until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Prune()
		}
	}
}

func (l *Limiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
