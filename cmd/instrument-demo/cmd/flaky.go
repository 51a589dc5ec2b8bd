package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bjaus/instrument"
	"github.com/bjaus/instrument/promhooks"
	"github.com/bjaus/instrument/retry"
)

// statusError is a failure of the flaky operation carrying a status code.
type statusError struct {
	attempt int
	code    int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("attempt %d failed with status %d", e.attempt, e.code)
}

func (e *statusError) StatusCode() int {
	return e.code
}

// attemptRow is one line of the attempt table.
type attemptRow struct {
	attempt int
	err     error
	delay   time.Duration
}

func newFlakyCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flaky",
		Short: "Call a function that fails a number of times before succeeding",
		Example: `  instrument-demo flaky --failures 2
  instrument-demo flaky --failures 5 --status 503 --attempts 4
  INSTRUMENT_STATUS=400 instrument-demo flaky --no-sleep`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlaky(cmd, v)
		},
	}

	cmd.Flags().Int("failures", 2, "number of failing attempts before success")
	cmd.Flags().Int("status", 0, "status code carried by failures (0 for none)")
	cmd.Flags().Int("attempts", 0, "attempt budget (default 3)")
	cmd.Flags().Duration("initial-delay", 0, "delay before the first retry (default 100ms)")
	cmd.Flags().Float64("factor", 0, "backoff multiplier (default 2)")
	cmd.Flags().Duration("max-delay", 0, "upper bound of a single delay (default 30s)")
	cmd.Flags().Bool("jitter", true, "randomize delays into [0.5x, 1.5x)")
	cmd.Flags().String("retry-config", "", "yaml file holding a retry policy")
	cmd.Flags().Bool("no-sleep", false, "skip the backoff sleeps")
	bindFlags(v, cmd.Flags())

	return cmd
}

func runFlaky(cmd *cobra.Command, v *viper.Viper) error {
	log, err := newLogger(v)
	if err != nil {
		return err
	}
	cfg, err := retryConfig(v)
	if err != nil {
		return err
	}

	var extra []retry.Option
	if v.GetBool("no_sleep") {
		extra = append(extra, retry.WithClock(instantClock{}))
	}
	policy := cfg.Policy(extra...)

	reg := prometheus.NewRegistry()
	metrics, err := promhooks.New(reg)
	if err != nil {
		return err
	}

	failures, status := v.GetInt("failures"), v.GetInt("status")
	var rows []attemptRow
	attempts := 0
	flaky := instrument.Wrap(func(ctx context.Context) (string, error) {
		attempts++
		if attempts <= failures {
			if status == 0 {
				return "", fmt.Errorf("attempt %d failed", attempts)
			}
			return "", &statusError{attempt: attempts, code: status}
		}
		return fmt.Sprintf("succeeded on attempt %d", attempts), nil
	},
		instrument.WithName("flaky"),
		instrument.WithLogger(log),
		instrument.WithRetry(policy),
		instrument.WithHooks(metrics.Hooks()),
		instrument.WithRetryOptions(retry.OnRetry(func(_ context.Context, attempt int, err error, delay time.Duration) {
			rows = append(rows, attemptRow{attempt: attempt, err: err, delay: delay})
		})),
	)

	result, callErr := flaky(cmd.Context())
	if callErr != nil {
		rows = append(rows, attemptRow{attempt: attempts, err: callErr})
	}

	if err := renderAttempts(cmd, rows); err != nil {
		return err
	}
	if err := printMetrics(cmd, reg); err != nil {
		return err
	}
	if callErr != nil {
		return fmt.Errorf("flaky gave up after %d attempts: %w", attempts, callErr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

// printMetrics summarizes the call metrics recorded by the promhooks collector.
func printMetrics(cmd *cobra.Command, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var calls, failed, seconds float64
	for _, f := range families {
		for _, m := range f.GetMetric() {
			switch f.GetName() {
			case "calls_total":
				calls += m.GetCounter().GetValue()
			case "call_errors_total":
				failed += m.GetCounter().GetValue()
			case "call_duration_seconds":
				seconds += m.GetHistogram().GetSampleSum()
			}
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "calls=%d errors=%d duration=%s\n",
		int(calls), int(failed), time.Duration(seconds*float64(time.Second)).Round(time.Millisecond))
	return nil
}

// retryConfig starts from the --retry-config file, if any, and applies the
// retry settings given as flags, environment or config keys on top.
func retryConfig(v *viper.Viper) (retry.Config, error) {
	var cfg retry.Config
	if path := v.GetString("retry_config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return retry.Config{}, fmt.Errorf("read retry config: %w", err)
		}
		if cfg, err = retry.ParseConfig(data); err != nil {
			return retry.Config{}, err
		}
	}

	if v.IsSet("attempts") {
		cfg.MaxAttempts = v.GetInt("attempts")
	}
	if v.IsSet("initial_delay") {
		cfg.InitialDelay = v.GetDuration("initial_delay")
	}
	if v.IsSet("factor") {
		cfg.Factor = v.GetFloat64("factor")
	}
	if v.IsSet("max_delay") {
		cfg.MaxDelay = v.GetDuration("max_delay")
	}
	if v.IsSet("jitter") {
		jitter := v.GetBool("jitter")
		cfg.Jitter = &jitter
	}
	return cfg, cfg.Validate()
}

func renderAttempts(cmd *cobra.Command, rows []attemptRow) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Attempt", "Error", "Delay")
	for _, r := range rows {
		delay := "-"
		if r.delay > 0 {
			delay = r.delay.Round(time.Millisecond).String()
		}
		if err := table.Append([]string{strconv.Itoa(r.attempt), r.err.Error(), delay}); err != nil {
			return err
		}
	}
	return table.Render()
}

// instantClock never sleeps.
type instantClock struct{}

func (instantClock) Now() time.Time { return time.Now() }

func (instantClock) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
