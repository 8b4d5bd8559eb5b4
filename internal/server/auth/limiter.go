package auth

import (
	"sync"
	"time"

	"github.com/dbelyaev/srpvault/internal/common"
)

type attemptRecord struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
}

// AttemptLimiter counts failed authentication attempts per userID+IP in a
// fixed window and blocks the pair once the threshold is reached. The
// limiter is consulted before any protocol work so a blocked caller never
// costs a KDF run or a modular exponentiation.
type AttemptLimiter struct {
	mu        sync.Mutex
	records   map[string]*attemptRecord
	threshold int
	window    time.Duration
	block     time.Duration
}

// NewAttemptLimiter builds a limiter. threshold failures within window block
// the key for the block duration.
func NewAttemptLimiter(threshold int, window, block time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		records:   make(map[string]*attemptRecord),
		threshold: threshold,
		window:    window,
		block:     block,
	}
}

func limiterKey(userID, ip string) string {
	return userID + "|" + ip
}

// Check returns common.ErrorRateLimited while the key is blocked, nil
// otherwise. Expired windows and blocks are cleared as a side effect.
func (l *AttemptLimiter) Check(userID, ip string) error {
	now := time.Now()
	key := limiterKey(userID, ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[key]
	if !ok {
		return nil
	}
	if now.Before(r.blockedUntil) {
		return common.ErrorRateLimited
	}
	if !r.blockedUntil.IsZero() || now.Sub(r.windowStart) > l.window {
		delete(l.records, key)
	}
	return nil
}

// Fail records a failed attempt and starts a block once failures inside the
// window reach the threshold.
func (l *AttemptLimiter) Fail(userID, ip string) {
	now := time.Now()
	key := limiterKey(userID, ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[key]
	if !ok || now.Sub(r.windowStart) > l.window {
		r = &attemptRecord{windowStart: now}
		l.records[key] = r
	}

	r.failures++
	if r.failures >= l.threshold {
		r.blockedUntil = now.Add(l.block)
	}
}

// Reset clears the key after a successful attempt.
func (l *AttemptLimiter) Reset(userID, ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, limiterKey(userID, ip))
}
