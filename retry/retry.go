package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Func is the function signature for retryable operations.
type Func func(ctx context.Context) error

// ValueFunc is a retryable operation producing a value.
type ValueFunc[T any] func(ctx context.Context) (T, error)

// Condition determines whether an error should be retried.
type Condition func(error) bool

// OnRetryFunc is called before each retry sleep.
type OnRetryFunc func(ctx context.Context, attempt int, err error, delay time.Duration)

// OnSuccessFunc is called when the function succeeds.
type OnSuccessFunc func(ctx context.Context, attempts int)

// OnExhaustedFunc is called when all retry attempts are exhausted.
type OnExhaustedFunc func(ctx context.Context, attempts int, err error)

// Policy defines retry behavior. Safe for concurrent use.
type Policy struct {
	maxAttempts  int
	initialDelay time.Duration
	factor       float64
	maxDelay     time.Duration
	jitter       bool
	backoff      Backoff
	condition    Condition
	clock        Clock
	random       func() float64
}

// Default values.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultFactor       = 2.0
	DefaultMaxDelay     = 30 * time.Second
)

// package-level defaults to avoid allocation
var (
	defaultClock  = realClock{}
	defaultPolicy = New()
)

func defaultConfig() config {
	return config{
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialDelay,
		factor:       DefaultFactor,
		maxDelay:     DefaultMaxDelay,
		jitter:       true,
		clock:        defaultClock,
		random:       rand.Float64,
		condition:    Retryable,
	}
}

// New creates a Policy with the given options. Options that are not set keep
// the defaults: 3 attempts, 100ms initial delay doubling on every retry,
// delays capped at 30s, jitter on, and Retryable as the condition.
func New(opts ...Option) *Policy {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Policy{
		maxAttempts:  cfg.maxAttempts,
		initialDelay: cfg.initialDelay,
		factor:       cfg.factor,
		maxDelay:     cfg.maxDelay,
		jitter:       cfg.jitter,
		backoff:      cfg.backoff,
		condition:    cfg.condition,
		clock:        cfg.clock,
		random:       cfg.random,
	}
}

// Never returns a policy that does not retry.
func Never() *Policy {
	return New(WithMaxAttempts(1))
}

// Default returns the default policy.
func Default() *Policy {
	return defaultPolicy
}

// MaxAttempts reports the attempt budget of the policy.
func (p *Policy) MaxAttempts() int {
	if p.maxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.maxAttempts
}

// Do executes fn with retry using the default policy.
func Do(ctx context.Context, fn Func, opts ...Option) error {
	return defaultPolicy.Do(ctx, fn, opts...)
}

// Do executes fn with retry using this policy's configuration.
func (p *Policy) Do(ctx context.Context, fn Func, opts ...Option) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// DoValue executes fn with retry and returns the value of the first
// successful attempt. A nil policy uses the defaults.
//
// The returned error is always the error of the last attempt, unwrapped from
// Stop if it was marked terminal.
func DoValue[T any](ctx context.Context, p *Policy, fn ValueFunc[T], opts ...Option) (T, error) {
	if p == nil {
		p = defaultPolicy
	}
	cfg := p.config()
	for _, opt := range opts {
		opt(&cfg)
	}
	return execute(ctx, fn, cfg)
}

func (p *Policy) config() config {
	return config{
		maxAttempts:  p.maxAttempts,
		initialDelay: p.initialDelay,
		factor:       p.factor,
		maxDelay:     p.maxDelay,
		jitter:       p.jitter,
		backoff:      p.backoff,
		condition:    p.condition,
		clock:        p.clock,
		random:       p.random,
	}
}

func execute[T any](ctx context.Context, fn ValueFunc[T], cfg config) (T, error) {
	var zero T

	maxAttempts := cfg.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	clock := cfg.clock
	if clock == nil {
		clock = defaultClock
	}
	backoff := cfg.delays()

	remaining := maxAttempts
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			if cfg.onSuccess != nil {
				cfg.onSuccess(ctx, attempt)
			}
			return v, nil
		}

		// Check for terminal error
		var stopped *stopError
		if errors.As(err, &stopped) {
			return zero, stopped.Unwrap()
		}

		// Check condition
		if cfg.condition != nil && !cfg.condition(err) {
			return zero, err
		}

		// Check if we've exhausted attempts
		remaining--
		if remaining <= 0 {
			if cfg.onExhausted != nil {
				cfg.onExhausted(ctx, attempt, err)
			}
			return zero, err
		}

		delay := backoff.Delay(attempt)

		if cfg.logger != nil && cfg.label != "" {
			cfg.logger.Warn("Retrying "+cfg.label,
				"method", cfg.label,
				"error", err,
				"attempt", attempt,
				"remaining", remaining,
				"delay_ms", delay.Milliseconds(),
			)
		}

		if cfg.onRetry != nil {
			cfg.onRetry(ctx, attempt, err, delay)
		}

		if sleepErr := clock.Sleep(ctx, delay); sleepErr != nil {
			if cfg.logger != nil && cfg.label != "" {
				cfg.logger.Warn("Abandoning retries of "+cfg.label, "method", cfg.label, "reason", sleepErr)
			}
			return zero, err
		}
	}
}

// delays returns the backoff used between attempts: the configured custom
// backoff, or initialDelay growing by factor, jittered into [0.5x, 1.5x) when
// enabled, and capped at maxDelay.
func (c config) delays() Backoff {
	if c.backoff != nil {
		return c.backoff
	}
	random := c.random
	if random == nil {
		random = rand.Float64
	}
	var b Backoff = Exponential(c.initialDelay, c.factor)
	if c.jitter {
		b = jitter(0.5, random, b)
	}
	if c.maxDelay > 0 {
		b = Cap(c.maxDelay, b)
	}
	return b
}

// Retryable is the default condition. An error carrying a status code (see
// StatusCoder) is retried only for 429 Too Many Requests and 503 Service
// Unavailable; an error without a status code is always retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	code, ok := StatusCode(err)
	if !ok {
		return true
	}
	return code == 429 || code == 503
}
