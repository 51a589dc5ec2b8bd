package instrument

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

const anonymousName = "anonymous"

// closureName matches the runtime names of function literals: func1, 2, ...
var closureName = regexp.MustCompile(`^(func)?\d+$`)

// Function is an instrumented function with a loosely typed call surface.
// It is safe for concurrent use.
type Function struct {
	name     string
	reported string
	call     caller
	cfg      *config
}

// WrapFunc instruments fn, which may be any function. A leading
// context.Context parameter receives the context of the call and a trailing
// error result is treated as the call's failure.
//
// The call name is taken from WithName, else from the runtime name of fn,
// else "anonymous".
func WrapFunc(fn any, opts ...Option) (*Function, error) {
	v := reflect.ValueOf(fn)
	call, err := newCaller(v)
	if err != nil {
		return nil, fmt.Errorf("wrap %T: %w", fn, err)
	}
	c := newConfig(opts)
	name := resolveName(c.name, v)
	reported := anonymousName
	if c.preserveName {
		reported = name
	}
	return &Function{name: name, reported: reported, call: call, cfg: c}, nil
}

// Name reports the identity of the wrapped function: its resolved name when
// names are preserved, "anonymous" otherwise.
func (f *Function) Name() string {
	return f.reported
}

// Call invokes the original with args. The result is nil for functions
// without results, the value itself for one result, and a []any for several.
func (f *Function) Call(ctx context.Context, args ...any) (any, error) {
	in, err := f.call.in(f.cfg.originalContext(ctx), args)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", f.name, err)
	}
	return invoke(ctx, f.cfg, f.name, args, func(context.Context) (any, error) {
		return f.call.call(in)
	})
}

// Wrap instruments a function without arguments, keeping its signature.
func Wrap[R any](fn func(context.Context) (R, error), opts ...Option) func(context.Context) (R, error) {
	c := newConfig(opts)
	name := resolveName(c.name, reflect.ValueOf(fn))
	return func(ctx context.Context) (R, error) {
		inner := c.originalContext(ctx)
		return invoke(ctx, c, name, []any{}, func(context.Context) (R, error) {
			return fn(inner)
		})
	}
}

// Wrap1 instruments a function of one argument, keeping its signature.
func Wrap1[A, R any](fn func(context.Context, A) (R, error), opts ...Option) func(context.Context, A) (R, error) {
	c := newConfig(opts)
	name := resolveName(c.name, reflect.ValueOf(fn))
	return func(ctx context.Context, a A) (R, error) {
		inner := c.originalContext(ctx)
		return invoke(ctx, c, name, []any{a}, func(context.Context) (R, error) {
			return fn(inner, a)
		})
	}
}

// Wrap2 instruments a function of two arguments, keeping its signature.
func Wrap2[A, B, R any](fn func(context.Context, A, B) (R, error), opts ...Option) func(context.Context, A, B) (R, error) {
	c := newConfig(opts)
	name := resolveName(c.name, reflect.ValueOf(fn))
	return func(ctx context.Context, a A, b B) (R, error) {
		inner := c.originalContext(ctx)
		return invoke(ctx, c, name, []any{a, b}, func(context.Context) (R, error) {
			return fn(inner, a, b)
		})
	}
}

// originalContext is the context handed to the original callable.
func (c *config) originalContext(ctx context.Context) context.Context {
	if !c.preserveContext || ctx == nil {
		return context.Background()
	}
	return ctx
}

func resolveName(explicit string, fn reflect.Value) string {
	if explicit != "" {
		return explicit
	}
	if name := funcName(fn); name != "" {
		return name
	}
	return anonymousName
}

// funcName returns the short runtime name of fn: "fetchUser" for
// "github.com/acme/app.fetchUser", "Get" for the method value
// "app.(*Client).Get-fm". Function literals have no usable name.
func funcName(fn reflect.Value) string {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return ""
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "[...]", "")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if closureName.MatchString(name) {
		return ""
	}
	return name
}
