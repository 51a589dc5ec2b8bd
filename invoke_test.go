package instrument_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/instrument"
	"github.com/bjaus/instrument/internal/testutil"
	"github.com/bjaus/instrument/logger"
	"github.com/bjaus/instrument/retry"
)

var errBoom = errors.New("boom")

// statusError is an error carrying an HTTP style status code.
type statusError struct {
	code int
}

func (e *statusError) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *statusError) StatusCode() int { return e.code }

func newSpy() (*logger.SlogLogger, *testutil.LogHandlerSpy) {
	spy := testutil.NewLogHandlerSpy()
	return logger.NewSlog(slog.New(spy)), spy
}

// recorder collects lifecycle events in order.
type recorder struct {
	events []string
	hcs    []*instrument.HookContext
}

func (r *recorder) add(event string, hc *instrument.HookContext) {
	r.events = append(r.events, event)
	r.hcs = append(r.hcs, hc)
}

func (r *recorder) options() []instrument.Option {
	return []instrument.Option{
		instrument.WithBefore(func(_ context.Context, _ string, _ []any, hc *instrument.HookContext) error {
			r.add("before", hc)
			return nil
		}),
		instrument.WithAfter(func(_ context.Context, _ string, _ any, hc *instrument.HookContext) error {
			r.add("after", hc)
			return nil
		}),
		instrument.WithOnError(func(_ context.Context, _ string, _ error, hc *instrument.HookContext) error {
			r.add("onError", hc)
			return nil
		}),
		instrument.WithFinally(func(_ context.Context, _ string, hc *instrument.HookContext) error {
			r.add("finally", hc)
			return nil
		}),
	}
}

func TestInvoke_Lifecycle(t *testing.T) {
	t.Run("success runs before, the call, after and finally", func(t *testing.T) {
		rec := &recorder{}
		log, _ := newSpy()
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			rec.add("call", nil)
			return 1, nil
		}, append(rec.options(), instrument.WithLogger(log), instrument.WithClock(testutil.NewFakeClock()))...)

		v, err := fn(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, v)
		assert.Equal(t, []string{"before", "call", "after", "finally"}, rec.events)
	})

	t.Run("failure runs every attempt, then onError and finally", func(t *testing.T) {
		rec := &recorder{}
		log, _ := newSpy()
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			rec.add("call", nil)
			return 0, errBoom
		}, append(rec.options(), instrument.WithLogger(log), instrument.WithClock(testutil.NewFakeClock()))...)

		_, err := fn(context.Background())

		assert.Same(t, errBoom, err)
		assert.Equal(t, []string{"before", "call", "call", "call", "onError", "finally"}, rec.events)
	})

	t.Run("hooks share one context per call", func(t *testing.T) {
		rec := &recorder{}
		log, _ := newSpy()
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 1, nil
		}, append(rec.options(), instrument.WithLogger(log))...)

		_, err := fn(context.Background())
		require.NoError(t, err)
		_, err = fn(context.Background())
		require.NoError(t, err)

		require.Len(t, rec.hcs, 6)
		first, second := rec.hcs[0], rec.hcs[3]
		assert.Same(t, first, rec.hcs[1])
		assert.Same(t, first, rec.hcs[2])
		assert.NotSame(t, first, second)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestInvoke_HookContext(t *testing.T) {
	t.Run("duration is unset until the call settles", func(t *testing.T) {
		clock := testutil.NewFakeClock()
		log, _ := newSpy()

		var inBefore, inAfter instrument.HookContext
		fn := instrument.Wrap(func(ctx context.Context) (string, error) {
			clock.Advance(250 * time.Millisecond)
			return "ok", nil
		},
			instrument.WithLogger(log),
			instrument.WithClock(clock),
			instrument.WithBefore(func(_ context.Context, _ string, _ []any, hc *instrument.HookContext) error {
				inBefore = *hc
				return nil
			}),
			instrument.WithAfter(func(_ context.Context, _ string, _ any, hc *instrument.HookContext) error {
				inAfter = *hc
				return nil
			}),
		)

		_, err := fn(context.Background())
		require.NoError(t, err)

		assert.False(t, inBefore.Settled())
		assert.Zero(t, inBefore.Duration)
		assert.True(t, clock.Now().Add(-250*time.Millisecond).Equal(inBefore.StartTime))

		assert.True(t, inAfter.Settled())
		assert.Equal(t, 250*time.Millisecond, inAfter.Duration)
		assert.NoError(t, inAfter.Err)
	})

	t.Run("error is set iff the call failed", func(t *testing.T) {
		log, _ := newSpy()
		var seen *instrument.HookContext
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 0, &statusError{code: 400}
		},
			instrument.WithLogger(log),
			instrument.WithFinally(func(_ context.Context, _ string, hc *instrument.HookContext) error {
				seen = hc
				return nil
			}),
		)

		_, err := fn(context.Background())

		var se *statusError
		require.ErrorAs(t, err, &se)
		require.NotNil(t, seen)
		assert.True(t, seen.Settled())
		assert.Same(t, se, seen.Err)
	})

	t.Run("duration includes backoff sleeps", func(t *testing.T) {
		clock := testutil.NewFakeClock()
		log, _ := newSpy()
		var seen *instrument.HookContext
		attempts := 0
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			attempts++
			if attempts < 3 {
				return 0, errBoom
			}
			return attempts, nil
		},
			instrument.WithLogger(log),
			instrument.WithClock(clock),
			instrument.WithRetry(retry.New(retry.WithJitter(false))),
			instrument.WithFinally(func(_ context.Context, _ string, hc *instrument.HookContext) error {
				seen = hc
				return nil
			}),
		)

		v, err := fn(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 3, v)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, clock.Sleeps())
		assert.Equal(t, 300*time.Millisecond, seen.Duration)
	})
}

func TestInvoke_HookFailures(t *testing.T) {
	errHook := errors.New("hook failed")

	t.Run("before failure aborts the call but finally still runs", func(t *testing.T) {
		log, spy := newSpy()
		calls := 0
		var finallyErr error
		finallyRuns := 0
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			calls++
			return 1, nil
		},
			instrument.WithLogger(log),
			instrument.WithBefore(func(context.Context, string, []any, *instrument.HookContext) error {
				return errHook
			}),
			instrument.WithFinally(func(_ context.Context, _ string, hc *instrument.HookContext) error {
				finallyRuns++
				finallyErr = hc.Err
				return nil
			}),
		)

		_, err := fn(context.Background())

		assert.Same(t, errHook, err)
		assert.Zero(t, calls)
		assert.Equal(t, 1, finallyRuns)
		assert.Same(t, errHook, finallyErr)
		assert.Equal(t, -1, spy.IndexOf(slog.LevelInfo, "Entering"))
	})

	t.Run("after failure fails the call", func(t *testing.T) {
		log, _ := newSpy()
		var finallyErr error
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 1, nil
		},
			instrument.WithLogger(log),
			instrument.WithAfter(func(context.Context, string, any, *instrument.HookContext) error {
				return errHook
			}),
			instrument.WithFinally(func(_ context.Context, _ string, hc *instrument.HookContext) error {
				finallyErr = hc.Err
				return nil
			}),
		)

		v, err := fn(context.Background())

		assert.Same(t, errHook, err)
		assert.Zero(t, v)
		assert.Same(t, errHook, finallyErr)
	})

	t.Run("onError failure replaces the call error", func(t *testing.T) {
		log, _ := newSpy()
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 0, errBoom
		},
			instrument.WithLogger(log),
			instrument.WithRetry(retry.Never()),
			instrument.WithOnError(func(context.Context, string, error, *instrument.HookContext) error {
				return errHook
			}),
		)

		_, err := fn(context.Background())

		assert.Same(t, errHook, err)
	})

	t.Run("finally failure fails a successful call", func(t *testing.T) {
		log, _ := newSpy()
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 1, nil
		},
			instrument.WithLogger(log),
			instrument.WithFinally(func(context.Context, string, *instrument.HookContext) error {
				return errHook
			}),
		)

		v, err := fn(context.Background())

		assert.Same(t, errHook, err)
		assert.Zero(t, v)
	})

	t.Run("finally failure marks the hook context failed", func(t *testing.T) {
		log, _ := newSpy()
		var seen *instrument.HookContext
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 1, nil
		},
			instrument.WithLogger(log),
			instrument.WithBefore(func(_ context.Context, _ string, _ []any, hc *instrument.HookContext) error {
				seen = hc
				return nil
			}),
			instrument.WithFinally(func(context.Context, string, *instrument.HookContext) error {
				return errHook
			}),
		)

		_, err := fn(context.Background())

		assert.Same(t, errHook, err)
		require.NotNil(t, seen)
		assert.Same(t, errHook, seen.Err)
	})

	t.Run("finally failure after a failed call is logged, not returned", func(t *testing.T) {
		log, spy := newSpy()
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 0, errBoom
		},
			instrument.WithName("flaky"),
			instrument.WithLogger(log),
			instrument.WithRetry(retry.Never()),
			instrument.WithFinally(func(context.Context, string, *instrument.HookContext) error {
				return errHook
			}),
		)

		_, err := fn(context.Background())

		assert.Same(t, errBoom, err)
		records := spy.RecordsWithMessage("Finally hook failed for flaky")
		require.Len(t, records, 1)
		assert.Equal(t, slog.LevelError, records[0].Level)
		assert.Equal(t, errHook, testutil.Attr(records[0], "error").Any())
	})

	t.Run("chained hooks stop at the first error", func(t *testing.T) {
		log, _ := newSpy()
		second := false
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 1, nil
		},
			instrument.WithLogger(log),
			instrument.WithBefore(func(context.Context, string, []any, *instrument.HookContext) error {
				return errHook
			}),
			instrument.WithBefore(func(context.Context, string, []any, *instrument.HookContext) error {
				second = true
				return nil
			}),
		)

		_, err := fn(context.Background())

		assert.ErrorIs(t, err, errHook)
		assert.False(t, second)
	})
}

func TestInvoke_Retry(t *testing.T) {
	t.Run("non-retryable status fails after one attempt", func(t *testing.T) {
		clock := testutil.NewFakeClock()
		log, _ := newSpy()
		attempts := 0
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			attempts++
			return 0, &statusError{code: 404}
		}, instrument.WithLogger(log), instrument.WithClock(clock))

		_, err := fn(context.Background())

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
		assert.Empty(t, clock.Sleeps())
	})

	t.Run("retryable status uses every attempt", func(t *testing.T) {
		for _, code := range []int{429, 503} {
			clock := testutil.NewFakeClock()
			log, _ := newSpy()
			attempts := 0
			want := &statusError{code: code}
			fn := instrument.Wrap(func(ctx context.Context) (int, error) {
				attempts++
				return 0, want
			}, instrument.WithLogger(log), instrument.WithClock(clock))

			_, err := fn(context.Background())

			assert.Same(t, want, err)
			assert.Equal(t, 3, attempts, "status %d", code)
			assert.Len(t, clock.Sleeps(), 2, "status %d", code)
		}
	})

	t.Run("call-level retry options reach the engine", func(t *testing.T) {
		log, _ := newSpy()
		var delays []time.Duration
		fn := instrument.Wrap(func(ctx context.Context) (int, error) {
			return 0, errBoom
		},
			instrument.WithLogger(log),
			instrument.WithClock(testutil.NewFakeClock()),
			instrument.WithRetry(retry.New(retry.WithMaxAttempts(4), retry.WithJitter(false))),
			instrument.WithRetryOptions(retry.OnRetry(func(_ context.Context, _ int, _ error, d time.Duration) {
				delays = append(delays, d)
			})),
		)

		_, err := fn(context.Background())

		assert.Same(t, errBoom, err)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, delays)
	})
}

func TestInvoke_Logging(t *testing.T) {
	t.Run("entry and exit lines carry the call details", func(t *testing.T) {
		clock := testutil.NewFakeClock()
		log, spy := newSpy()
		fn := instrument.Wrap2(func(ctx context.Context, a, b int) (int, error) {
			clock.Advance(1500 * time.Microsecond)
			return a * b, nil
		}, instrument.WithName("Multiply"), instrument.WithLogger(log), instrument.WithClock(clock))

		_, err := fn(context.Background(), 6, 7)
		require.NoError(t, err)

		assert.Equal(t, []string{"Entering Multiply", "Exiting Multiply"}, spy.Messages())
		records := spy.Records()
		entry, exit := records[0], records[1]

		assert.Equal(t, slog.LevelInfo, entry.Level)
		assert.Equal(t, "Multiply", testutil.Attr(entry, "method").String())
		assert.Equal(t, []any{6, 7}, testutil.Attr(entry, "args").Any())

		assert.Equal(t, slog.LevelInfo, exit.Level)
		assert.Equal(t, int64(42), testutil.Attr(exit, "result").Int64())
		assert.InDelta(t, 1.5, testutil.Attr(exit, "duration_ms").Float64(), 1e-9)
		assert.Equal(t, testutil.Attr(entry, "call_id").String(), testutil.Attr(exit, "call_id").String())
	})

	t.Run("exit line omits the result of void calls", func(t *testing.T) {
		log, spy := newSpy()
		fn, err := instrument.WrapFunc(func(ctx context.Context) error { return nil }, instrument.WithLogger(log))
		require.NoError(t, err)

		_, err = fn.Call(context.Background())
		require.NoError(t, err)

		exit := spy.Records()[1]
		assert.False(t, testutil.HasAttr(exit, "result"))
	})

	t.Run("configured level applies to entry and exit", func(t *testing.T) {
		log, spy := newSpy()
		fn := instrument.Wrap(func(ctx context.Context) (int, error) { return 1, nil },
			instrument.WithName("quiet"),
			instrument.WithLogger(log),
			instrument.WithLevel(logger.LevelDebug),
		)

		_, err := fn(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 0, spy.IndexOf(slog.LevelDebug, "Entering quiet"))
		assert.Equal(t, 1, spy.IndexOf(slog.LevelDebug, "Exiting quiet"))
	})

	t.Run("retries are warned about and the failure is logged as error", func(t *testing.T) {
		log, spy := newSpy()
		fn := instrument.Wrap(func(ctx context.Context) (int, error) { return 0, errBoom },
			instrument.WithName("flaky"),
			instrument.WithLogger(log),
			instrument.WithClock(testutil.NewFakeClock()),
		)

		_, err := fn(context.Background())
		require.Error(t, err)

		assert.Equal(t, []string{
			"Entering flaky",
			"Retrying flaky",
			"Retrying flaky",
			"Error in flaky",
		}, spy.Messages())

		retries := spy.RecordsWithMessage("Retrying flaky")
		assert.Equal(t, slog.LevelWarn, retries[0].Level)
		assert.Equal(t, int64(1), testutil.Attr(retries[0], "attempt").Int64())
		assert.Equal(t, int64(2), testutil.Attr(retries[0], "remaining").Int64())
		assert.Equal(t, int64(1), testutil.Attr(retries[1], "remaining").Int64())

		failure := spy.RecordsWithMessage("Error in flaky")[0]
		assert.Equal(t, slog.LevelError, failure.Level)
		assert.Equal(t, errBoom, testutil.Attr(failure, "error").Any())
	})
}

func TestInvoke_Concurrent(t *testing.T) {
	log, _ := newSpy()
	fn := instrument.Wrap1(func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	}, instrument.WithLogger(log))

	results := make(chan int, 20)
	for i := range 20 {
		go func() {
			v, err := fn(context.Background(), i)
			assert.NoError(t, err)
			results <- v - 2*i
		}()
	}
	for range 20 {
		assert.Zero(t, <-results)
	}
}
