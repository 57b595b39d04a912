package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter applies a global and a per-identity token bucket. The global
// bucket protects the process; the per-identity buckets keep one noisy
// user from starving the rest.
type Limiter struct {
	global *rate.Limiter

	mu       sync.RWMutex
	perOwner map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter. An rps of 0 disables limiting entirely.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		// The global bucket is sized for ten identities at full rate.
		global:   rate.NewLimiter(rate.Limit(rps*10), burst*10),
		perOwner: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Allow reports whether a request from the identity may proceed.
func (l *Limiter) Allow(ownerID string) bool {
	if l.global == nil {
		return true
	}
	if !l.global.Allow() {
		return false
	}
	return l.ownerLimiter(ownerID).Allow()
}

func (l *Limiter) ownerLimiter(ownerID string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.perOwner[ownerID]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.perOwner[ownerID]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.perOwner[ownerID] = limiter
	return limiter
}
