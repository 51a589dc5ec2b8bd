package instrument

import (
	"github.com/bjaus/instrument/logger"
	"github.com/bjaus/instrument/retry"
)

// config holds the settings of one wrapper.
type config struct {
	// Shared by functions and classes
	hooks     Hooks
	logger    logger.Logger
	level     logger.Level
	policy    *retry.Policy
	retryOpts []retry.Option
	clock     retry.Clock

	// Functions
	name            string
	preserveName    bool
	preserveContext bool

	// Classes
	selector      Selector
	includeStatic bool
}

// Option configures a wrapper.
type Option func(*config)

func newConfig(opts []Option) *config {
	c := &config{
		level:           logger.LevelInfo,
		preserveName:    true,
		preserveContext: true,
		includeStatic:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.NewConsole()
	}
	if c.clock == nil {
		c.clock = retry.RealClock()
	}
	if c.policy == nil {
		c.policy = retry.Default()
	}
	return c
}

// WithBefore adds a hook that runs before the first attempt.
func WithBefore(fn BeforeFunc) Option {
	return func(c *config) {
		c.hooks = ChainHooks(c.hooks, Hooks{Before: fn})
	}
}

// WithAfter adds a hook that runs after a successful call.
func WithAfter(fn AfterFunc) Option {
	return func(c *config) {
		c.hooks = ChainHooks(c.hooks, Hooks{After: fn})
	}
}

// WithOnError adds a hook that runs after a failed call.
func WithOnError(fn OnErrorFunc) Option {
	return func(c *config) {
		c.hooks = ChainHooks(c.hooks, Hooks{OnError: fn})
	}
}

// WithFinally adds a hook that runs after every call.
func WithFinally(fn FinallyFunc) Option {
	return func(c *config) {
		c.hooks = ChainHooks(c.hooks, Hooks{Finally: fn})
	}
}

// WithHooks adds a complete hook set, e.g. one built by promhooks.
func WithHooks(h Hooks) Option {
	return func(c *config) {
		c.hooks = ChainHooks(c.hooks, h)
	}
}

// WithLogger sets the logger. Without one, calls are logged to the console.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithLevel sets the level of the entry and exit lines. Defaults to info;
// failures are always logged at error.
func WithLevel(level logger.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithRetry sets the retry policy. Defaults to retry.Default().
func WithRetry(p *retry.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithRetryOptions adds call-level retry options such as retry.OnRetry.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(c *config) {
		c.retryOpts = append(c.retryOpts, opts...)
	}
}

// WithClock sets the clock used for call timing and retry sleeps.
func WithClock(clock retry.Clock) Option {
	return func(c *config) {
		c.clock = clock
		c.retryOpts = append(c.retryOpts, retry.WithClock(clock))
	}
}

// WithName overrides the name a wrapped function is logged and reported as.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithPreserveName controls whether Function.Name reports the resolved name
// of the original. Defaults to true.
func WithPreserveName(preserve bool) Option {
	return func(c *config) {
		c.preserveName = preserve
	}
}

// WithPreserveContext controls whether the caller's context is forwarded to
// the original. When false the original receives context.Background().
// Defaults to true.
func WithPreserveContext(preserve bool) Option {
	return func(c *config) {
		c.preserveContext = preserve
	}
}

// WithMethods restricts class wrapping to the listed member names.
func WithMethods(names ...string) Option {
	return func(c *config) {
		if c.selector.Names == nil {
			c.selector.Names = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			c.selector.Names[n] = struct{}{}
		}
	}
}

// WithMethodFilter restricts class wrapping to members whose name the
// predicate accepts.
func WithMethodFilter(filter func(name string) bool) Option {
	return func(c *config) {
		c.selector.Filter = filter
	}
}

// WithStatic controls whether static functions are wrapped. Defaults to true.
func WithStatic(include bool) Option {
	return func(c *config) {
		c.includeStatic = include
	}
}

// WithInherited controls whether methods promoted from embedded fields are
// wrapped. Defaults to false.
func WithInherited(include bool) Option {
	return func(c *config) {
		c.selector.IncludeInherited = include
	}
}

// WithPrivate controls whether private members are wrapped. Defaults to false.
func WithPrivate(include bool) Option {
	return func(c *config) {
		c.selector.IncludePrivate = include
	}
}

// WithAccessors controls whether getter/setter pairs are wrapped.
// Defaults to false.
func WithAccessors(include bool) Option {
	return func(c *config) {
		c.selector.IncludeAccessors = include
	}
}
