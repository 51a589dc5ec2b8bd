package retry

import (
	"time"

	"github.com/bjaus/instrument/logger"
)

// config holds all retry configuration.
type config struct {
	// Policy-level options
	maxAttempts  int
	initialDelay time.Duration
	factor       float64
	maxDelay     time.Duration
	jitter       bool
	backoff      Backoff
	condition    Condition
	clock        Clock
	random       func() float64

	// Call-level options
	logger      logger.Logger
	label       string
	onRetry     OnRetryFunc
	onSuccess   OnSuccessFunc
	onExhausted OnExhaustedFunc
}

// Option configures retry behavior.
type Option func(*config)

// WithMaxAttempts sets the total number of attempts, including the first.
// A value of 1 disables retries.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *config) {
		c.initialDelay = d
	}
}

// WithFactor sets the multiplier applied to the delay after every retry.
func WithFactor(f float64) Option {
	return func(c *config) {
		c.factor = f
	}
}

// WithMaxDelay caps every delay, after jitter has been applied.
// Zero or negative disables the cap.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.maxDelay = d
	}
}

// WithJitter turns jitter on or off. With jitter each delay is drawn
// uniformly from [0.5x, 1.5x) of the un-jittered delay.
func WithJitter(enabled bool) Option {
	return func(c *config) {
		c.jitter = enabled
	}
}

// WithBackoff replaces the delay computation with a custom strategy.
// The initial delay, factor, max delay and jitter settings are then ignored.
func WithBackoff(b Backoff) Option {
	return func(c *config) {
		c.backoff = b
	}
}

// WithClock sets the clock for time operations. Useful for testing.
func WithClock(clock Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithRand sets the source of uniform [0,1) numbers used for jitter.
func WithRand(fn func() float64) Option {
	return func(c *config) {
		c.random = fn
	}
}

// If sets the condition that determines whether an error should be retried.
// If the condition returns false, the retry loop stops immediately.
func If(cond Condition) Option {
	return func(c *config) {
		c.condition = cond
	}
}

// IfNot sets a condition where matching errors are NOT retried.
// This is equivalent to If(Not(cond)).
func IfNot(cond Condition) Option {
	return If(Not(cond))
}

// Not inverts a condition.
func Not(cond Condition) Condition {
	return func(err error) bool {
		return !cond(err)
	}
}

// WithLogger sets the logger retry warnings are written to. Warnings are only
// written when a label is set as well.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithLabel names the operation in retry warnings.
func WithLabel(label string) Option {
	return func(c *config) {
		c.label = label
	}
}

// OnRetry sets a hook that is called before each retry sleep.
func OnRetry(fn OnRetryFunc) Option {
	return func(c *config) {
		c.onRetry = fn
	}
}

// OnSuccess sets a hook that is called when the function succeeds.
func OnSuccess(fn OnSuccessFunc) Option {
	return func(c *config) {
		c.onSuccess = fn
	}
}

// OnExhausted sets a hook that is called when all retry attempts are exhausted.
func OnExhausted(fn OnExhaustedFunc) Option {
	return func(c *config) {
		c.onExhausted = fn
	}
}
