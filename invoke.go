package instrument

import (
	"context"
	"math"
	"time"

	"github.com/bjaus/instrument/logger"
	"github.com/bjaus/instrument/retry"
)

// Log attribute keys.
const (
	logAttrMethod     = "method"
	logAttrArgs       = "args"
	logAttrResult     = "result"
	logAttrError      = "error"
	logAttrCallID     = "call_id"
	logAttrDurationMS = "duration_ms"
)

// invoke runs one instrumented call: before hook, entry log, attempts through
// the retry policy, exit or error log with the after or onError hook, and
// finally the finally hook, strictly in that order. Errors of fn and of the
// hooks are returned unchanged.
func invoke[R any](ctx context.Context, c *config, name string, args []any, fn retry.ValueFunc[R]) (R, error) {
	hc := newHookContext(name, c.clock.Now())

	result, err := run(ctx, c, hc, args, fn)

	if c.hooks.Finally != nil {
		if ferr := c.hooks.Finally(ctx, name, hc); ferr != nil {
			if err != nil {
				// an earlier failure takes precedence over the finally hook's
				c.logger.Error("Finally hook failed for "+name,
					logAttrMethod, name,
					logAttrError, ferr,
					logAttrCallID, hc.ID.String(),
				)
				return result, err
			}
			hc.Err = ferr
			var zero R
			return zero, ferr
		}
	}
	return result, err
}

func run[R any](ctx context.Context, c *config, hc *HookContext, args []any, fn retry.ValueFunc[R]) (R, error) {
	var zero R
	name := hc.Name

	if c.hooks.Before != nil {
		if err := c.hooks.Before(ctx, name, args, hc); err != nil {
			hc.settle(c.clock.Now(), err)
			return zero, err
		}
	}

	logger.Log(c.logger, c.level, "Entering "+name,
		logAttrMethod, name,
		logAttrArgs, args,
		logAttrCallID, hc.ID.String(),
	)

	opts := make([]retry.Option, 0, len(c.retryOpts)+2)
	opts = append(opts, retry.WithLogger(c.logger), retry.WithLabel(name))
	opts = append(opts, c.retryOpts...)

	result, err := retry.DoValue(ctx, c.policy, fn, opts...)
	if err != nil {
		hc.settle(c.clock.Now(), err)
		c.logger.Error("Error in "+name,
			logAttrMethod, name,
			logAttrError, err,
			logAttrDurationMS, toMilliseconds(hc.Duration),
			logAttrCallID, hc.ID.String(),
		)
		if c.hooks.OnError != nil {
			if herr := c.hooks.OnError(ctx, name, err, hc); herr != nil {
				return zero, herr
			}
		}
		return zero, err
	}

	hc.settle(c.clock.Now(), nil)
	attrs := []any{
		logAttrMethod, name,
		logAttrDurationMS, toMilliseconds(hc.Duration),
		logAttrCallID, hc.ID.String(),
	}
	if !isVoid(result) {
		attrs = append(attrs, logAttrResult, result)
	}
	logger.Log(c.logger, c.level, "Exiting "+name, attrs...)

	if c.hooks.After != nil {
		if herr := c.hooks.After(ctx, name, result, hc); herr != nil {
			hc.Err = herr
			return zero, herr
		}
	}
	return result, nil
}

// isVoid reports whether a call produced no value worth logging.
func isVoid(v any) bool {
	switch v.(type) {
	case nil, struct{}:
		return true
	}
	return false
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
