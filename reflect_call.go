package instrument

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// caller invokes a func value with loosely typed arguments. A leading
// context.Context parameter is filled from the call, a trailing error result
// is split off as the call's error.
type caller struct {
	fn       reflect.Value
	takesCtx bool
	returnsE bool
}

func newCaller(fn reflect.Value) (caller, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return caller{}, ErrNotFunc
	}
	t := fn.Type()
	return caller{
		fn:       fn,
		takesCtx: t.NumIn() > 0 && t.In(0) == contextType,
		returnsE: t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType,
	}, nil
}

// in converts args to the parameter list of the function.
func (c caller) in(ctx context.Context, args []any) ([]reflect.Value, error) {
	t := c.fn.Type()
	offset := 0
	in := make([]reflect.Value, 0, t.NumIn()+len(args))
	if c.takesCtx {
		in = append(in, reflect.ValueOf(&ctx).Elem())
		offset = 1
	}

	fixed := t.NumIn() - offset
	if t.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!t.IsVariadic() && len(args) > fixed) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrArgs, fixed, len(args))
	}

	for i, arg := range args {
		p := i + offset
		var pt reflect.Type
		if t.IsVariadic() && p >= t.NumIn()-1 {
			pt = t.In(t.NumIn() - 1).Elem()
		} else {
			pt = t.In(p)
		}
		v, err := convertArg(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %v", ErrArgs, i, err)
		}
		in = append(in, v)
	}
	return in, nil
}

// call runs the function and folds its results into a single value: nil for
// none, the value itself for one, a []any for several.
func (c caller) call(in []reflect.Value) (any, error) {
	out := c.fn.Call(in)

	var err error
	if c.returnsE {
		if last := out[len(out)-1]; !last.IsNil() {
			err = last.Interface().(error)
		}
		out = out[:len(out)-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		values := make([]any, len(out))
		for i, v := range out {
			values[i] = v.Interface()
		}
		return values, err
	}
}

func convertArg(arg any, to reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch to.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(to), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", to)
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(to) {
		return v, nil
	}
	// numeric literals, e.g. an int passed for an int64 or float64 parameter
	if isNumber(v.Kind()) && isNumber(to.Kind()) {
		cv := v.Convert(to)
		if !flipsSign(v, cv) && cv.Convert(v.Type()).Equal(v) {
			return cv, nil
		}
		return reflect.Value{}, fmt.Errorf("%v does not fit %s", arg, to)
	}
	return reflect.Value{}, fmt.Errorf("%T is not assignable to %s", arg, to)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// flipsSign reports a conversion between signed and unsigned kinds that
// round-trips but changes the sign, e.g. -1 to uint.
func flipsSign(from, to reflect.Value) bool {
	switch {
	case isUnsigned(to.Kind()):
		return isSigned(from.Kind()) && from.Int() < 0 || isFloat(from.Kind()) && from.Float() < 0
	case isSigned(to.Kind()):
		return isUnsigned(from.Kind()) && to.Int() < 0
	}
	return false
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
