package service

import "time"

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

// LockoutPolicy decides whether an account may attempt a login and how a
// failed attempt moves its counters. It holds no state; callers persist the
// values it returns.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy locks for 30 minutes after 5 failed attempts.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

func (p LockoutPolicy) withDefaults() LockoutPolicy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultLockoutThreshold
	}
	if p.Duration <= 0 {
		p.Duration = DefaultLockoutDuration
	}
	return p
}

// IsLocked is true iff lockedUntil is set and strictly after now.
func (p LockoutPolicy) IsLocked(failedAttempts int, lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// OnFailedAttempt increments the counter and sets the lockout expiry once the
// counter reaches the threshold.
func (p LockoutPolicy) OnFailedAttempt(failedAttempts int, now time.Time) (int, *time.Time) {
	p = p.withDefaults()
	failedAttempts++
	if failedAttempts < p.Threshold {
		return failedAttempts, nil
	}
	until := now.Add(p.Duration)
	return failedAttempts, &until
}

// OnSuccess clears both fields.
func (p LockoutPolicy) OnSuccess() (int, *time.Time) {
	return 0, nil
}
