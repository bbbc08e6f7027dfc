package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/config"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/logging"
)

// ErrInvocationFailed is returned by the run command when the script did not
// succeed. The report has already been printed.
var ErrInvocationFailed = errors.New("invocation failed")

type globalOptions struct {
	verbose bool
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "syncrunner",
		Short: "Run Nango sync and action scripts",
		Long: `syncrunner executes untrusted sync and action scripts against a connection.

Every invocation runs in a fresh JavaScript runtime with a deadline. Whatever
the script does, the outcome is reported as a result envelope whose error, if
any, is classified, stripped of credentials and bounded in size.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts, version))
	rootCmd.AddCommand(newSubmitCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}

// loadConfig reads the environment and applies global flags.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
}
