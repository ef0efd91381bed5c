package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrNotActive is returned when a pool is used before Initialize.
	ErrNotActive = errors.New("pool not active")
	// ErrInvalidFee is returned when a supplied fee violates [MinFee, MaxFee].
	ErrInvalidFee = errors.New("invalid fee")
	// ErrInvalidRatio is returned when a ratio is zero, exceeds the sanity
	// ceiling, or would drive the smoothed target to zero.
	ErrInvalidRatio = errors.New("invalid ratio")
	// ErrInvalidParameter is returned when a tunable parameter violates its
	// sanity range.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrCooldownNotElapsed is returned when a commit is attempted before
	// MinPeriod has passed since the last one.
	ErrCooldownNotElapsed = errors.New("cooldown not elapsed")
)

// CooldownError carries the earliest timestamp at which the next commit
// becomes eligible. It unwraps to ErrCooldownNotElapsed.
type CooldownError struct {
	Now          uint64
	NextEligible uint64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown not elapsed: now=%d next_eligible=%d", e.Now, e.NextEligible)
}

func (e *CooldownError) Unwrap() error { return ErrCooldownNotElapsed }
