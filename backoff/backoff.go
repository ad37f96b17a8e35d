// Package backoff computes how long a failed task waits before it is
// dequeued again. Strategies hold no mutable state and may be shared
// between workers.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy returns the delay before retry attempt n. Attempt 1 is the
// first retry after the initial failure.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Func adapts a plain function to a Strategy.
type Func func(attempt int) time.Duration

// Delay calls f.
func (f Func) Delay(attempt int) time.Duration { return f(attempt) }

// Constant waits the same interval before every retry.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the interval.
func (c *Constant) Delay(int) time.Duration { return c.Interval }

// Exponential doubles the delay on each attempt up to Max. With Jitter set
// the delay is drawn uniformly from [0, d].
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  bool
}

// NewExponential creates an exponential strategy without jitter.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// NewExponentialWithJitter creates an exponential strategy with full
// jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay, Jitter: true}
}

// Delay returns min(Initial*2^(attempt-1), Max), jittered if configured.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && d > float64(e.Max) {
		d = float64(e.Max)
	}
	if e.Jitter {
		d *= rand.Float64() //nolint:gosec // retry spacing only
	}
	return time.Duration(d)
}

// DefaultStrategy is used when no strategy is configured. Model fits fail
// for data reasons far more often than for transient ones, so retries are
// short and bounded.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(100*time.Millisecond, 5*time.Second)
}
