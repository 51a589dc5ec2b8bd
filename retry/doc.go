// Package retry is the retry engine behind instrumented calls.
//
// It runs an operation until it succeeds, fails with an error the policy's
// condition rejects, or runs out of attempts. Between attempts it sleeps for
// an exponentially growing, optionally jittered and capped delay.
//
// # Quick Start
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return client.Call(ctx)
//	})
//
//	user, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*User, error) {
//	    return client.GetUser(ctx, id)
//	})
//
// # Policy-Level and Call-Level Options
//
// Policy-level options fix the retry budget and are set once, typically at
// wire-up time:
//   - WithMaxAttempts: total attempts including the first (default 3)
//   - WithInitialDelay: delay before the first retry (default 100ms)
//   - WithFactor: multiplier applied after every retry (default 2)
//   - WithMaxDelay: cap applied after jitter (default 30s)
//   - WithJitter: spread each delay over [0.5x, 1.5x) (default on)
//   - If: the retry condition (default Retryable)
//   - WithClock, WithRand: time and randomness, for tests
//
// Call-level options are passed to Do and decide what to report:
//   - WithLogger, WithLabel: warn-level line before every retry
//   - OnRetry, OnSuccess, OnExhausted: observers
//
// # Delay Computation
//
// Before retry n the loop sleeps for
//
//	min(maxDelay, initialDelay * factor^(n-1) * (0.5 + rand[0,1)))
//
// or the un-jittered value when jitter is off. WithBackoff replaces the whole
// computation with a custom Backoff built from Constant, Linear, Exponential,
// Cap, Min, Jitter or BackoffFunc.
//
// # Retry Condition
//
// Retryable, the default condition, looks for an error in the chain that
// implements StatusCoder. Status 429 and 503 are retried, any other status is
// not, and errors without a status are always retried. Supply a stricter
// condition with If when unanticipated errors must not be retried.
//
// # Terminal Errors
//
// Use Stop to signal that an error should not be retried:
//
//	if errors.Is(err, sql.ErrNoRows) {
//	    return nil, retry.Stop(ErrNotFound)
//	}
//
// # Errors
//
// The error returned is always the error of the last attempt, exactly as the
// operation returned it (or as passed to Stop). Errors of earlier attempts are
// not collected. Cancelling ctx interrupts the sleep between attempts and
// returns the last error; an attempt that is already running is not
// interrupted.
//
// # Configuration Files
//
// Config mirrors the policy options with YAML tags:
//
//	cfg, err := retry.ParseConfig(data)
//	policy := cfg.Policy()
//
// # Testing
//
// Inject a fake clock to control time in tests:
//
//	type fakeClock struct {
//	    now    time.Time
//	    sleeps []time.Duration
//	}
//
//	func (c *fakeClock) Now() time.Time { return c.now }
//	func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
//	    c.sleeps = append(c.sleeps, d)
//	    c.now = c.now.Add(d)
//	    return ctx.Err()
//	}
package retry
