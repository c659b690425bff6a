// Package ratelimiter gates chat requests with three independent limits:
// a per-wallet cooldown, a per-IP sliding window, and a global daily
// transfer counter. All bookkeeping is in-memory and resets on restart.
package ratelimiter

import (
	"math"
	"sync"
	"time"
)

// Clock returns the current time; injectable for deterministic tests
type Clock func() time.Time

// Config holds the limiter parameters
type Config struct {
	// Enabled false bypasses every check. Intended for local testing only.
	Enabled bool
	// WalletCooldown is the minimum interval between accepted requests
	// from the same wallet.
	WalletCooldown time.Duration
	// IPWindow and IPMaxRequests define the per-IP sliding window.
	IPWindow      time.Duration
	IPMaxRequests int
	// DailyLimit is the maximum count of successful transfers per day.
	DailyLimit int
}

// Limiter tracks request history per wallet, per IP, and per day.
// A single mutex guards all three stores; it is only held for the
// read-modify-write bookkeeping, never across I/O.
type Limiter struct {
	config Config
	now    Clock

	mu         sync.Mutex
	walletLast map[string]time.Time
	ipHits     map[string][]time.Time
	dailyCount int
	dailyStart time.Time
}

// New creates a Limiter using the wall clock
func New(config Config) *Limiter {
	return NewWithClock(config, time.Now)
}

// NewWithClock creates a Limiter with an injected clock
func NewWithClock(config Config, now Clock) *Limiter {
	return &Limiter{
		config:     config,
		now:        now,
		walletLast: make(map[string]time.Time),
		ipHits:     make(map[string][]time.Time),
		dailyStart: now(),
	}
}

// Enabled reports whether rate limiting is active
func (l *Limiter) Enabled() bool {
	return l.config.Enabled
}

// CheckWallet allows the request if the wallet has no prior accepted
// timestamp or the cooldown has elapsed. On allow the timestamp is recorded
// atomically; on deny the remaining wait is returned in seconds, rounded up
// to the next tenth of a second.
func (l *Limiter) CheckWallet(wallet string) (bool, float64) {
	if !l.config.Enabled {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	last, exists := l.walletLast[wallet]
	if exists {
		elapsed := now.Sub(last)
		if elapsed < l.config.WalletCooldown {
			remaining := l.config.WalletCooldown - elapsed
			return false, math.Ceil(remaining.Seconds()*10) / 10
		}
	}

	l.walletLast[wallet] = now
	return true, 0
}

// CheckIP allows the request if the count of timestamps within the trailing
// window is below the ceiling. Expired entries are pruned lazily here; there
// is no per-entry background sweep.
func (l *Limiter) CheckIP(ip string) bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.config.IPWindow)

	hits := l.ipHits[ip]
	live := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}

	if len(live) >= l.config.IPMaxRequests {
		l.ipHits[ip] = live
		return false
	}

	l.ipHits[ip] = append(live, now)
	return true
}

// CheckDaily gates on the daily transfer counter without incrementing it.
// The counter increments only after a confirmed successful transfer, so
// AI-only responses and failed transfers never consume quota.
func (l *Limiter) CheckDaily() bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked()
	return l.dailyCount < l.config.DailyLimit
}

// RecordTransfer increments the daily counter after a confirmed success.
// It refuses to exceed the limit rather than clamping, and reports whether
// the increment was applied.
func (l *Limiter) RecordTransfer() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked()
	if l.dailyCount >= l.config.DailyLimit {
		return false
	}
	l.dailyCount++
	return true
}

// DailyRemaining returns the remaining daily transfer quota
func (l *Limiter) DailyRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked()
	remaining := l.config.DailyLimit - l.dailyCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// rolloverLocked resets the daily counter when the wall-clock day has
// changed since the window started. Caller must hold l.mu.
func (l *Limiter) rolloverLocked() {
	now := l.now()
	y1, m1, d1 := l.dailyStart.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		l.dailyCount = 0
		l.dailyStart = now
	}
}

// Cleanup removes wallet entries past the cooldown and IP entries whose
// windows have fully expired, bounding memory across long uptimes.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for wallet, last := range l.walletLast {
		if now.Sub(last) > l.config.WalletCooldown {
			delete(l.walletLast, wallet)
		}
	}

	cutoff := now.Add(-l.config.IPWindow)
	for ip, hits := range l.ipHits {
		expired := true
		for _, t := range hits {
			if t.After(cutoff) {
				expired = false
				break
			}
		}
		if expired {
			delete(l.ipHits, ip)
		}
	}
}
