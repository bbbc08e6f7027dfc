package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/syncrunner/internal/invocation"
	"github.com/GriffinCanCode/syncrunner/internal/payload"
	"github.com/GriffinCanCode/syncrunner/internal/runner"
)

type runOptions struct {
	metadataPath      string
	connectionID      string
	providerConfigKey string
	provider          string
	secretKey         string
	syncName          string
	actionName        string
	input             string
	dryRun            bool
	timeout           time.Duration
}

func newRunCommand(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute one sync or action script",
		Long: `Execute a TypeScript or JavaScript script once and print its report.

Invocation metadata is read from --metadata (YAML, TOML or JSON) and then
overridden by individual flags. The report is printed to stdout as JSON; the
command exits with status 1 when the script did not succeed.`,
		Example: `  # Run a sync with metadata from a file
  syncrunner run ./issues.ts --metadata ./connection.yaml

  # Run an action with input
  syncrunner run ./create-issue.ts --metadata ./connection.yaml \
    --action-name create-issue --input '{"title":"Bug"}'

  # Dry run against a local Nango
  NANGO_API_URL=http://localhost:3003 syncrunner run ./issues.ts \
    --connection-id c1 --provider-config-key github --secret-key sk --sync-name issues --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, global, opts, args[0])
		},
	}

	opts.addFlags(cmd.Flags())
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "invocation deadline (overrides RUNNER_TIMEOUT)")

	return cmd
}

// addFlags registers the metadata flags shared by run and submit.
func (o *runOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&o.metadataPath, "metadata", "m", "", "metadata file (.yaml, .toml or .json)")
	flags.StringVar(&o.connectionID, "connection-id", "", "connection ID")
	flags.StringVar(&o.providerConfigKey, "provider-config-key", "", "provider config key")
	flags.StringVar(&o.provider, "provider", "", "provider name")
	flags.StringVar(&o.secretKey, "secret-key", "", "Nango secret key")
	flags.StringVar(&o.syncName, "sync-name", "", "sync name")
	flags.StringVar(&o.actionName, "action-name", "", "action name")
	flags.StringVar(&o.input, "input", "", "action input as JSON")
	flags.BoolVar(&o.dryRun, "dry-run", false, "mark outbound calls as a dry run")
}

// scriptName falls back to the file name when the metadata names no script.
func scriptName(meta invocation.Metadata, path string) string {
	if name := meta.ScriptName(); name != "" {
		return name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func printReport(cmd *cobra.Command, report any) error {
	out, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func runScript(cmd *cobra.Command, global *globalOptions, opts *runOptions, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	meta, err := opts.metadata(cmd)
	if err != nil {
		return err
	}
	ic, err := invocation.NewContext(meta)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		cfg.Runner.Timeout = opts.timeout
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engine := runner.New(append(runner.FromConfig(cfg), runner.WithLogger(logger))...)

	report := engine.Invoke(cmd.Context(), ic, scriptName(meta, path), string(source))
	if err := printReport(cmd, report); err != nil {
		return err
	}

	if !report.Result.Success {
		return ErrInvocationFailed
	}
	return nil
}

// metadata loads the metadata file, if any, and applies the flags the user set.
func (o *runOptions) metadata(cmd *cobra.Command) (invocation.Metadata, error) {
	var meta invocation.Metadata
	if o.metadataPath != "" {
		loaded, err := invocation.LoadMetadata(o.metadataPath)
		if err != nil {
			return meta, err
		}
		meta = loaded
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag  string
		value string
		field *string
	}{
		{"connection-id", o.connectionID, &meta.ConnectionID},
		{"provider-config-key", o.providerConfigKey, &meta.ProviderConfigKey},
		{"provider", o.provider, &meta.Provider},
		{"secret-key", o.secretKey, &meta.SecretKey},
		{"sync-name", o.syncName, &meta.SyncName},
		{"action-name", o.actionName, &meta.ActionName},
	}
	for _, ov := range overrides {
		if flags.Changed(ov.flag) {
			*ov.field = ov.value
		}
	}
	if flags.Changed("action-name") && !flags.Changed("sync-name") {
		meta.SyncName = ""
	}
	if flags.Changed("dry-run") {
		meta.DryRun = o.dryRun
	}
	if flags.Changed("input") {
		input, err := payload.Decode([]byte(o.input))
		if err != nil {
			return meta, fmt.Errorf("--input: %w", err)
		}
		meta.Input = input
	}
	return meta, nil
}
