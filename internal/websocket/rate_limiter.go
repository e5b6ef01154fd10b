package websocket

import (
	"sync"
	"time"
)

// RateLimiter implements per-connection inbound rate limiting with a
// minute-based window (100 messages per minute).
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimit
}

// clientLimit tracks the current window for a single connection
type clientLimit struct {
	messageCount int
	windowStart  time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimit),
	}
}

// Allow checks if the connection may send another message.
func (rl *RateLimiter) Allow(connID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	limit, exists := rl.clients[connID]
	if !exists {
		rl.clients[connID] = &clientLimit{
			messageCount: 1,
			windowStart:  now,
		}
		return true
	}

	if now.Sub(limit.windowStart) >= time.Minute {
		limit.messageCount = 1
		limit.windowStart = now
		return true
	}

	if limit.messageCount >= 100 {
		return false
	}

	limit.messageCount++
	return true
}

// Forget drops the tracking state for a connection. Called on disconnect so
// closed connections do not leak limiter entries.
func (rl *RateLimiter) Forget(connID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.clients, connID)
}
