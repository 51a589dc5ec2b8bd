package instrument

import "context"

// BeforeFunc runs before the first attempt. Returning an error aborts the call.
type BeforeFunc func(ctx context.Context, name string, args []any, hc *HookContext) error

// AfterFunc runs once the call succeeded.
type AfterFunc func(ctx context.Context, name string, result any, hc *HookContext) error

// OnErrorFunc runs once the call failed for good.
type OnErrorFunc func(ctx context.Context, name string, err error, hc *HookContext) error

// FinallyFunc runs exactly once after every call, whatever its outcome.
type FinallyFunc func(ctx context.Context, name string, hc *HookContext) error

// Hooks groups the lifecycle callbacks of a wrapper. Nil members are skipped.
type Hooks struct {
	Before  BeforeFunc
	After   AfterFunc
	OnError OnErrorFunc
	Finally FinallyFunc
}

// ChainHooks combines several hook sets. For every lifecycle point the
// callbacks run in argument order; the first error stops the chain.
func ChainHooks(sets ...Hooks) Hooks {
	var h Hooks
	for _, s := range sets {
		h.Before = chainBefore(h.Before, s.Before)
		h.After = chainAfter(h.After, s.After)
		h.OnError = chainOnError(h.OnError, s.OnError)
		h.Finally = chainFinally(h.Finally, s.Finally)
	}
	return h
}

func chainBefore(first, next BeforeFunc) BeforeFunc {
	if first == nil {
		return next
	}
	if next == nil {
		return first
	}
	return func(ctx context.Context, name string, args []any, hc *HookContext) error {
		if err := first(ctx, name, args, hc); err != nil {
			return err
		}
		return next(ctx, name, args, hc)
	}
}

func chainAfter(first, next AfterFunc) AfterFunc {
	if first == nil {
		return next
	}
	if next == nil {
		return first
	}
	return func(ctx context.Context, name string, result any, hc *HookContext) error {
		if err := first(ctx, name, result, hc); err != nil {
			return err
		}
		return next(ctx, name, result, hc)
	}
}

func chainOnError(first, next OnErrorFunc) OnErrorFunc {
	if first == nil {
		return next
	}
	if next == nil {
		return first
	}
	return func(ctx context.Context, name string, callErr error, hc *HookContext) error {
		if err := first(ctx, name, callErr, hc); err != nil {
			return err
		}
		return next(ctx, name, callErr, hc)
	}
}

func chainFinally(first, next FinallyFunc) FinallyFunc {
	if first == nil {
		return next
	}
	if next == nil {
		return first
	}
	return func(ctx context.Context, name string, hc *HookContext) error {
		if err := first(ctx, name, hc); err != nil {
			return err
		}
		return next(ctx, name, hc)
	}
}
