// Package instrument wraps functions and the methods of types so that every
// call is logged, passed through lifecycle hooks and retried with exponential
// backoff, without changing how callers invoke them.
//
// instrument provides:
//
//   - Function wrapping: typed (Wrap, Wrap1, Wrap2) or reflective (WrapFunc)
//   - Class wrapping: the methods and static functions of a type (WrapClass)
//   - Lifecycle hooks: Before, After, OnError and Finally around every call
//   - Retry: policies from the retry package, with backoff, jitter and a status aware default condition
//   - Pluggable logging: anything implementing logger.Logger
//
// # Quick Start
//
// Wrapping a function keeps its signature:
//
//	fetch := instrument.Wrap1(fetchUser,
//	    instrument.WithRetry(retry.New(retry.WithMaxAttempts(5))),
//	)
//
//	user, err := fetch(ctx, "42")
//
// Every call produces an "Entering fetchUser" line, then "Exiting fetchUser"
// or "Error in fetchUser", and a "Retrying fetchUser" warning before each new
// attempt.
//
// # Lifecycle
//
// A call runs its steps strictly in order:
//
//  1. Before, with the arguments. An error aborts the call.
//  2. The entry log line.
//  3. The attempts, as allowed by the retry policy.
//  4. On success the exit log line and After; on failure the error log line and OnError.
//  5. Finally, exactly once, whatever happened before.
//
// Every hook receives the same *HookContext, whose ID also appears in the log
// lines as call_id. Errors returned by the original or by a hook are returned
// to the caller unchanged, so errors.Is and errors.As keep working.
//
// # Classes
//
// A class is a struct type plus an optional constructor and static members:
//
//	calc, err := instrument.WrapClass(instrument.ClassDef[Calculator]{
//	    New:     NewCalculator,
//	    Statics: map[string]any{"Parse": ParseCalculator},
//	})
//
//	c, err := calc.New(ctx)
//	sum, err := c.Call(ctx, "Add", 2, 3)
//
// By default only exported methods declared on the type itself are wrapped.
// WithInherited, WithPrivate and WithAccessors widen the selection;
// WithMethods and WithMethodFilter narrow it. Members that are not selected
// are still callable and simply run uninstrumented.
//
// # Metrics
//
// The promhooks package turns the lifecycle into Prometheus metrics:
//
//	collector, err := promhooks.New(prometheus.DefaultRegisterer)
//	fetch := instrument.Wrap1(fetchUser, instrument.WithHooks(collector.Hooks()))
package instrument
