package instrument

import (
	"context"
	"fmt"
	"reflect"
)

// staticPrefix labels class-level calls in logs and hooks.
const staticPrefix = "static "

// ClassDef describes a type to instrument as a class.
type ClassDef[T any] struct {
	// Name labels the class. Defaults to the name of T.
	Name string

	// New constructs an instance: a function returning *T or T, optionally
	// followed by an error. A leading context.Context receives the context of
	// the call. When nil, a function in Statics under "New" is used.
	New any

	// Statics are class-level members. Functions can be wrapped, any other
	// value is passed through unchanged.
	Statics map[string]any
}

// Class is an instrumented class. Members are computed once, at wrap time.
// It is safe for concurrent use.
type Class[T any] struct {
	name    string
	ctor    *caller
	members []Member
	wrapped map[string]bool
	statics map[string]caller
	values  map[string]any
	cfg     *config
}

// WrapClass instruments the methods and static functions of T. It only
// inspects T; nothing is called until New, Bind or CallStatic.
func WrapClass[T any](def ClassDef[T], opts ...Option) (*Class[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return nil, fmt.Errorf("wrap class %s: %w", t, ErrClass)
	}

	c := &Class[T]{
		name:    def.Name,
		members: Members(t, def.Statics),
		wrapped: make(map[string]bool),
		statics: make(map[string]caller),
		values:  make(map[string]any, len(def.Statics)),
		cfg:     newConfig(opts),
	}
	if c.name == "" {
		c.name = t.Name()
	}

	ctor := def.New
	if ctor == nil {
		ctor = def.Statics[constructorName]
	}
	if ctor != nil {
		call, err := newConstructor[T](ctor)
		if err != nil {
			return nil, fmt.Errorf("wrap class %s: %w", c.name, err)
		}
		c.ctor = &call
	}

	for name, v := range def.Statics {
		c.values[name] = v
	}

	for _, m := range c.members {
		if !m.Static {
			c.wrapped[m.Name] = c.cfg.selector.Select(m)
			continue
		}
		call, err := newCaller(reflect.ValueOf(def.Statics[m.Name]))
		if err != nil {
			return nil, fmt.Errorf("wrap class %s: static %s: %w", c.name, m.Name, err)
		}
		c.statics[m.Name] = call
		c.wrapped[staticPrefix+m.Name] = c.cfg.includeStatic && c.cfg.selector.Select(m)
	}
	return c, nil
}

func newConstructor[T any](fn any) (caller, error) {
	call, err := newCaller(reflect.ValueOf(fn))
	if err != nil {
		return caller{}, fmt.Errorf("%w: %w", ErrConstructor, err)
	}
	t := call.fn.Type()
	out := t.NumOut()
	if call.returnsE {
		out--
	}
	if out != 1 {
		return caller{}, fmt.Errorf("%w: %s must return one value", ErrConstructor, t)
	}
	if r := t.Out(0); r != reflect.TypeFor[T]() && r != reflect.TypeFor[*T]() {
		return caller{}, fmt.Errorf("%w: %s does not return %s", ErrConstructor, t, reflect.TypeFor[*T]())
	}
	return call, nil
}

// Name returns the label of the class.
func (c *Class[T]) Name() string {
	return c.name
}

// Members returns the members computed at wrap time.
func (c *Class[T]) Members() []Member {
	return append([]Member(nil), c.members...)
}

// New runs the constructor once, without hooks or retry, and binds the new
// value. A constructor error is returned unchanged.
func (c *Class[T]) New(ctx context.Context, args ...any) (*Instance[T], error) {
	if c.ctor == nil {
		return nil, fmt.Errorf("%s: %w: none defined", c.name, ErrConstructor)
	}
	in, err := c.ctor.in(c.cfg.originalContext(ctx), args)
	if err != nil {
		return nil, fmt.Errorf("new %s: %w", c.name, err)
	}
	v, err := c.ctor.call(in)
	if err != nil {
		return nil, err
	}

	var ptr *T
	switch x := v.(type) {
	case *T:
		ptr = x
	case T:
		ptr = &x
	}
	if ptr == nil {
		return nil, fmt.Errorf("new %s: %w: returned nil", c.name, ErrConstructor)
	}
	return c.Bind(ptr), nil
}

// Bind instruments an existing value.
func (c *Class[T]) Bind(v *T) *Instance[T] {
	recv := reflect.ValueOf(v)
	inst := &Instance[T]{
		value:   v,
		class:   c,
		methods: make(map[string]caller, len(c.members)),
	}
	for _, m := range c.members {
		if m.Static {
			continue
		}
		// method values are never nil
		call, _ := newCaller(recv.MethodByName(m.Name))
		inst.methods[m.Name] = call
	}
	return inst
}

// CallStatic calls a static function of the class. Wrapped statics are
// logged and hooked as "static <name>".
func (c *Class[T]) CallStatic(ctx context.Context, name string, args ...any) (any, error) {
	call, ok := c.statics[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", c.name, name, ErrUnknownMember)
	}
	in, err := call.in(c.cfg.originalContext(ctx), args)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", c.name, name, err)
	}
	if !c.wrapped[staticPrefix+name] {
		return call.call(in)
	}
	return invoke(ctx, c.cfg, staticPrefix+name, args, func(context.Context) (any, error) {
		return call.call(in)
	})
}

// StaticValue returns the static member name as it was defined.
func (c *Class[T]) StaticValue(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// StaticWrapped reports whether calls to the static function name are
// instrumented.
func (c *Class[T]) StaticWrapped(name string) bool {
	return c.wrapped[staticPrefix+name]
}

// Instance is an instrumented value of a class.
type Instance[T any] struct {
	value   *T
	class   *Class[T]
	methods map[string]caller
}

// Unwrap returns the original value. Calls made on it directly are not
// instrumented.
func (i *Instance[T]) Unwrap() *T {
	return i.value
}

// Class returns the class the instance belongs to.
func (i *Instance[T]) Class() *Class[T] {
	return i.class
}

// Wrapped reports whether calls to method are instrumented.
func (i *Instance[T]) Wrapped(method string) bool {
	return i.class.wrapped[method]
}

// Call invokes method with args. Instrumented methods run the full lifecycle;
// the others are called directly.
func (i *Instance[T]) Call(ctx context.Context, method string, args ...any) (any, error) {
	call, ok := i.methods[method]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", i.class.name, method, ErrUnknownMember)
	}
	cfg := i.class.cfg
	in, err := call.in(cfg.originalContext(ctx), args)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", i.class.name, method, err)
	}
	if !i.class.wrapped[method] {
		return call.call(in)
	}
	return invoke(ctx, cfg, method, args, func(context.Context) (any, error) {
		return call.call(in)
	})
}
