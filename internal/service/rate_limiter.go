package service

import (
	"sync"
	"time"
)

// RegistrationRateLimit manages IP-based rate limiting for user registration
type RegistrationRateLimit struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	window   time.Duration
	maxReqs  int
}

// NewRegistrationRateLimit creates a new rate limiter
func NewRegistrationRateLimit(window time.Duration, maxReqs int) *RegistrationRateLimit {
	return &RegistrationRateLimit{
		requests: make(map[string][]time.Time),
		window:   window,
		maxReqs:  maxReqs,
	}
}

// Check checks if the IP is within rate limit
func (r *RegistrationRateLimit) Check(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	// Clean old requests
	if reqs, exists := r.requests[ip]; exists {
		var valid []time.Time
		for _, t := range reqs {
			if now.Sub(t) < r.window {
				valid = append(valid, t)
			}
		}
		r.requests[ip] = valid
	}

	// Check if within limit
	if len(r.requests[ip]) >= r.maxReqs {
		return false
	}

	// Add current request
	r.requests[ip] = append(r.requests[ip], now)
	return true
}
