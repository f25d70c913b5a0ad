package ratelimit

import "time"

// Clock is the time source used by TokenBucket. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
