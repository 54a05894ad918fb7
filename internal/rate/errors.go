package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited matches every *LimitedError through errors.Is.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps failures of the backing store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrContention is returned when a failure could not be recorded within
	// the compare-and-swap retry budget.
	ErrContention = errors.New("rate limit record contention")
)

// LimitedError reports a lockout and how long remains until the window resets.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limited: try again in %d minute(s)", e.Minutes())
}

// Is makes errors.Is(err, ErrRateLimited) hold.
func (e *LimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Minutes returns the remaining lockout rounded up to whole minutes, never
// less than one.
func (e *LimitedError) Minutes() int {
	m := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}
