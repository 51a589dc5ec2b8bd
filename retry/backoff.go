package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff calculates the delay between retry attempts. attempt is the number
// of the attempt that just failed, starting at 1.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// BackoffFunc is an adapter that allows a function to be used as a Backoff.
type BackoffFunc func(attempt int) time.Duration

// Delay implements Backoff.
func (f BackoffFunc) Delay(attempt int) time.Duration {
	return f(attempt)
}

// Constant returns a backoff that always waits the same duration.
func Constant(d time.Duration) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		return d
	})
}

// Linear returns a backoff that increases linearly with each attempt.
// delay = base * attempt
func Linear(base time.Duration) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	})
}

// Exponential returns a backoff that grows by factor with each attempt.
// delay = base * factor^(attempt-1)
// A non-positive factor is treated as 1.
func Exponential(base time.Duration, factor float64) Backoff {
	if factor <= 0 {
		factor = 1
	}
	return BackoffFunc(func(attempt int) time.Duration {
		if attempt <= 1 {
			return base
		}
		return toDuration(float64(base) * math.Pow(factor, float64(attempt-1)))
	})
}

// Cap wraps a backoff and caps the delay at a maximum value.
func Cap(max time.Duration, b Backoff) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		d := b.Delay(attempt)
		if d > max {
			return max
		}
		return d
	})
}

// Min wraps a backoff and ensures the delay is at least a minimum value.
func Min(min time.Duration, b Backoff) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		d := b.Delay(attempt)
		if d < min {
			return min
		}
		return d
	})
}

// Jitter wraps a backoff and adds random jitter to the delay.
// The jitter is a factor between 0 and 1, where 0.2 means ±20%.
// A factor of 0.5 spreads delays uniformly over [0.5x, 1.5x).
func Jitter(factor float64, b Backoff) Backoff {
	return jitter(factor, rand.Float64, b)
}

func jitter(factor float64, random func() float64, b Backoff) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		d := b.Delay(attempt)
		if factor <= 0 {
			return d
		}
		// Random value between -jitterRange and +jitterRange
		jitterRange := float64(d) * factor
		result := toDuration(float64(d) + (random()*2-1)*jitterRange)
		if result < 0 {
			return 0
		}
		return result
	})
}

// toDuration converts nanoseconds held in a float, saturating on overflow.
func toDuration(ns float64) time.Duration {
	if ns >= math.MaxInt64 || math.IsInf(ns, 1) || math.IsNaN(ns) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
