// Package ratelimit provides sliding-window admission control for outbound
// API calls. A Limiter never rejects; callers wait until they are compliant.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most maxRequests admissions per window, tracked over a
// FIFO queue of admission timestamps. The mutex is held across the wait, so
// concurrent callers on the same limiter queue behind each other.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a limiter admitting maxRequests per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Acquire blocks until making a request is within the rate limit, then
// records the admission.
func (l *Limiter) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	if len(l.stamps) >= l.maxRequests {
		wait := l.window - now.Sub(l.stamps[0])
		if wait > 0 {
			l.sleep(wait)
			l.evict(l.now())
		}
	}

	l.stamps = append(l.stamps, l.now())
}

// CanProceed reports whether a request would be admitted right now. It does
// not record an admission.
func (l *Limiter) CanProceed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(l.now())
	return len(l.stamps) < l.maxRequests
}

// evict drops timestamps that have aged out of the window. Callers hold mu.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

// Limiter names for the external dependencies curio talks to.
const (
	APITwitter = "twitter"
	APILLM     = "llm"
	APIArxiv   = "arxiv"
	APIWeb     = "web"
)

// Registry holds one limiter per named external dependency. Limiters are
// independent; there is no cross-API coordination.
type Registry struct {
	limiters map[string]*Limiter
}

// NewRegistry creates a registry with the fixed per-API policies.
func NewRegistry() *Registry {
	return &Registry{
		limiters: map[string]*Limiter{
			APITwitter: New(100, 15*time.Minute),
			APILLM:     New(50, time.Minute),
			APIArxiv:   New(3, time.Second),
			APIWeb:     New(10, time.Second),
		},
	}
}

// Get returns the limiter for an API name, falling back to the generic web
// limiter for unknown names.
func (r *Registry) Get(name string) *Limiter {
	if l, ok := r.limiters[name]; ok {
		return l
	}
	return r.limiters[APIWeb]
}
