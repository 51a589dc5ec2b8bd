// Package cmd implements the instrument-demo command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bjaus/instrument/logger"
)

const envPrefix = "INSTRUMENT"

// NewRootCommand builds the command tree. Settings are read from flags, then
// INSTRUMENT_* environment variables, then the config file.
func NewRootCommand(stdout io.Writer) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "instrument-demo",
		Short:         "Demonstrates instrumented, retried calls",
		Long:          `instrument-demo wraps deliberately failing functions and shows the logging, hooks and retry backoff applied to them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v)
		},
	}
	root.SetOut(stdout)

	root.PersistentFlags().String("config", "", "config file (yaml)")
	root.PersistentFlags().String("log-level", "info", "minimum log level: trace, debug, info, warn, error or fatal")
	root.PersistentFlags().Bool("json", false, "log payloads as JSON")
	bindFlags(v, root.PersistentFlags())

	root.AddCommand(newFlakyCommand(v))
	return root
}

// Execute runs the root command against the standard streams.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfgFile := v.GetString("config")
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

func newLogger(v *viper.Viper) (logger.Logger, error) {
	level, err := logger.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, err
	}
	opts := []logger.ConsoleOption{logger.WithMinLevel(level)}
	if v.GetBool("json") {
		opts = append(opts, logger.WithJSON())
	}
	return logger.NewConsole(opts...), nil
}

// bindFlags binds every flag of fs to the viper key with dashes replaced by
// underscores.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		// BindPFlag only fails for a nil flag
		_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}
