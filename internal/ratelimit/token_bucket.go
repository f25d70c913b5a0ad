package ratelimit

import (
	"sync"
	"time"
)

// milliTokens is the fixed-point scale: one token is 1000 milli-tokens, so a
// rate of R tokens/sec accrues R milli-tokens per elapsed millisecond.
const milliTokens int64 = 1000

const maxInt64 = int64(^uint64(0) >> 1)

// TokenBucket limits inbound signaling events for a single connection.
//
// Capacity is the burst size and rate is the sustained number of tokens per
// second. A rate of zero disables refill; a capacity of zero rejects every
// non-empty request. TokenBucket is safe for concurrent use.
type TokenBucket struct {
	mu sync.Mutex

	clock Clock

	capacity int64 // milli-tokens
	rate     int64 // tokens/sec

	available int64 // milli-tokens
	last      time.Time
}

func NewTokenBucket(clock Clock, capacityTokens, ratePerSecond int64) *TokenBucket {
	if clock == nil {
		clock = RealClock{}
	}
	capacity := toMilli(capacityTokens)
	if ratePerSecond < 0 {
		ratePerSecond = 0
	}
	return &TokenBucket{
		clock:     clock,
		capacity:  capacity,
		rate:      ratePerSecond,
		available: capacity,
		last:      clock.Now(),
	}
}

// Allow takes n tokens if the bucket holds at least that many. n <= 0 always
// succeeds.
func (b *TokenBucket) Allow(n int64) bool {
	if n <= 0 {
		return true
	}
	cost := toMilli(n)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(b.clock.Now())
	if b.available < cost {
		return false
	}
	b.available -= cost
	return true
}

// Available reports the number of whole tokens currently in the bucket.
func (b *TokenBucket) Available() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(b.clock.Now())
	return b.available / milliTokens
}

func (b *TokenBucket) refillLocked(now time.Time) {
	if !now.After(b.last) {
		// Clock stepped backwards or did not move; rebase without refilling.
		b.last = now
		return
	}
	elapsed := now.Sub(b.last)
	b.last = now

	if b.rate == 0 || b.available >= b.capacity {
		b.available = min(b.available, b.capacity)
		return
	}

	// Sub-millisecond deltas still count because last was moved forward only
	// by the amount actually credited below.
	ms := elapsed.Milliseconds()
	if ms == 0 {
		b.last = now.Add(-elapsed)
		return
	}
	b.last = now.Add(-(elapsed - time.Duration(ms)*time.Millisecond))

	missing := b.capacity - b.available
	if ms >= (missing+b.rate-1)/b.rate {
		b.available = b.capacity
		return
	}
	b.available += ms * b.rate
}

func toMilli(tokens int64) int64 {
	if tokens <= 0 {
		return 0
	}
	if tokens > maxInt64/milliTokens {
		return maxInt64
	}
	return tokens * milliTokens
}
