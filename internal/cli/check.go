package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Easy-Rad/wally/internal/config"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and print the effective settings",
		Long: `Load the config file, apply environment overrides and validate the result.
The effective configuration is printed with every secret masked.

Example:
  wally check --config /etc/wally.yaml
  wally check --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("Loading config from %s", opts.ConfigPath)
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error("E001", "failed to load config", err.Error())
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if err := cfg.Validate(); err != nil {
		_ = formatter.Error("E002", err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid config", err)
	}

	redacted := cfg.Redacted()
	if opts.Format == "json" {
		return formatter.Success(redacted)
	}
	out, err := yaml.Marshal(redacted)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render config", err)
	}
	return formatter.Success(fmt.Sprintf("Config OK\n\n%s", strings.TrimRight(string(out), "\n")))
}
