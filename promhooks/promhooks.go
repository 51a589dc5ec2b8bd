// Package promhooks records instrumented calls as Prometheus metrics.
//
//	collector, err := promhooks.New(prometheus.DefaultRegisterer, promhooks.WithNamespace("billing"))
//	if err != nil {
//	    return err
//	}
//	charge := instrument.Wrap1(chargeCard, instrument.WithHooks(collector.Hooks()))
//
// Every metric is labelled with the call name, e.g. "chargeCard" or
// "static Parse".
package promhooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/instrument"
)

const labelMethod = "method"

// Collector owns the call metrics.
type Collector struct {
	calls    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec

	// calls whose Before hook ran, so Finally only releases what it counted
	started sync.Map
}

type config struct {
	namespace string
	subsystem string
	buckets   []float64
}

// Option configures a Collector.
type Option func(*config)

// WithNamespace prefixes every metric name.
func WithNamespace(ns string) Option {
	return func(c *config) {
		c.namespace = ns
	}
}

// WithSubsystem adds a subsystem to every metric name.
func WithSubsystem(s string) Option {
	return func(c *config) {
		c.subsystem = s
	}
}

// WithBuckets sets the duration histogram buckets, in seconds.
func WithBuckets(buckets ...float64) Option {
	return func(c *config) {
		c.buckets = buckets
	}
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer, opts ...Option) (*Collector, error) {
	cfg := config{buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Collector{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Subsystem: cfg.subsystem,
				Name:      "calls_total",
				Help:      "Total number of instrumented calls, by call name",
			},
			[]string{labelMethod},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Subsystem: cfg.subsystem,
				Name:      "call_errors_total",
				Help:      "Total number of instrumented calls that failed, by call name",
			},
			[]string{labelMethod},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.namespace,
				Subsystem: cfg.subsystem,
				Name:      "call_duration_seconds",
				Help:      "Duration of instrumented calls including retries, by call name",
				Buckets:   cfg.buckets,
			},
			[]string{labelMethod},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.namespace,
				Subsystem: cfg.subsystem,
				Name:      "calls_in_flight",
				Help:      "Number of instrumented calls currently running, by call name",
			},
			[]string{labelMethod},
		),
	}

	for _, col := range []prometheus.Collector{c.calls, c.errors, c.duration, c.inFlight} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register call metrics: %w", err)
		}
	}
	return c, nil
}

// Hooks returns the hook set feeding the metrics.
func (c *Collector) Hooks() instrument.Hooks {
	return instrument.Hooks{
		Before:  c.before,
		Finally: c.finally,
	}
}

func (c *Collector) before(_ context.Context, name string, _ []any, hc *instrument.HookContext) error {
	c.started.Store(hc.ID, struct{}{})
	c.inFlight.WithLabelValues(name).Inc()
	return nil
}

func (c *Collector) finally(_ context.Context, name string, hc *instrument.HookContext) error {
	if c.release(hc.ID) {
		c.inFlight.WithLabelValues(name).Dec()
	}
	c.calls.WithLabelValues(name).Inc()
	if hc.Err != nil {
		c.errors.WithLabelValues(name).Inc()
	}
	c.duration.WithLabelValues(name).Observe(hc.Duration.Seconds())
	return nil
}

func (c *Collector) release(id uuid.UUID) bool {
	_, ok := c.started.LoadAndDelete(id)
	return ok
}
