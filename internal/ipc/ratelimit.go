package ipc

import (
	"sync"
	"time"
)

// RateLimiter bounds connection attempts per peer identity over a sliding
// window. State is in memory and dies with the daemon.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	seen      map[string][]time.Time
	lastSweep time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: window, now: time.Now, seen: make(map[string][]time.Time)}
}

// Allow records an attempt by identity and reports whether it is within the
// limit. Rejected attempts are not recorded.
func (r *RateLimiter) Allow(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.window {
		r.sweep(now)
	}
	recent := r.recent(identity, now)
	if len(recent) >= r.limit {
		r.seen[identity] = recent
		return false
	}
	r.seen[identity] = append(recent, now)
	return true
}

// Forget drops the history of one identity.
func (r *RateLimiter) Forget(identity string) {
	r.mu.Lock()
	delete(r.seen, identity)
	r.mu.Unlock()
}

// Len is the number of identities with attempts inside the window.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep(r.now())
	return len(r.seen)
}

func (r *RateLimiter) recent(identity string, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	ts := r.seen[identity]
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

func (r *RateLimiter) sweep(now time.Time) {
	for id := range r.seen {
		if ts := r.recent(id, now); len(ts) == 0 {
			delete(r.seen, id)
		} else {
			r.seen[id] = ts
		}
	}
	r.lastSweep = now
}
