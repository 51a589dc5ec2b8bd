package retry

import (
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file representation of a Policy. Zero fields keep the
// defaults of New.
//
//	max_attempts: 5
//	initial_delay: 250ms
//	factor: 1.5
//	max_delay: 10s
//	jitter: false
//	retry_status: [429, 502, 503]
type Config struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Factor       float64       `yaml:"factor"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Jitter       *bool         `yaml:"jitter"`

	// RetryStatus replaces the status codes Retryable accepts. Errors without
	// a status are still retried.
	RetryStatus []int `yaml:"retry_status"`
}

// ParseConfig decodes a YAML document into a Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse retry config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings New would silently misinterpret.
func (c Config) Validate() error {
	switch {
	case c.MaxAttempts < 0:
		return fmt.Errorf("retry config: max_attempts must be >= 0, got %d", c.MaxAttempts)
	case c.InitialDelay < 0:
		return fmt.Errorf("retry config: initial_delay must be >= 0, got %v", c.InitialDelay)
	case c.Factor < 0:
		return fmt.Errorf("retry config: factor must be >= 0, got %v", c.Factor)
	case c.MaxDelay < 0:
		return fmt.Errorf("retry config: max_delay must be >= 0, got %v", c.MaxDelay)
	}
	return nil
}

// Options converts the config to policy options.
func (c Config) Options() []Option {
	var opts []Option
	if c.MaxAttempts > 0 {
		opts = append(opts, WithMaxAttempts(c.MaxAttempts))
	}
	if c.InitialDelay > 0 {
		opts = append(opts, WithInitialDelay(c.InitialDelay))
	}
	if c.Factor > 0 {
		opts = append(opts, WithFactor(c.Factor))
	}
	if c.MaxDelay > 0 {
		opts = append(opts, WithMaxDelay(c.MaxDelay))
	}
	if c.Jitter != nil {
		opts = append(opts, WithJitter(*c.Jitter))
	}
	if len(c.RetryStatus) > 0 {
		opts = append(opts, If(RetryStatus(c.RetryStatus...)))
	}
	return opts
}

// Policy builds a Policy from the config. extra options are applied last.
func (c Config) Policy(extra ...Option) *Policy {
	return New(append(c.Options(), extra...)...)
}

// RetryStatus returns a condition like Retryable that accepts the given status
// codes instead of 429 and 503.
func RetryStatus(codes ...int) Condition {
	return func(err error) bool {
		if err == nil {
			return false
		}
		code, ok := StatusCode(err)
		if !ok {
			return true
		}
		return slices.Contains(codes, code)
	}
}
