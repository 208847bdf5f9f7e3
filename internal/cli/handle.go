package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Easy-Rad/wally/internal/config"
	"github.com/Easy-Rad/wally/internal/model"
)

// HandleOptions holds flags for the handle command.
type HandleOptions struct {
	*RootOptions
	Domain string
}

// HandleResult is the output of the handle command.
type HandleResult struct {
	Code string `json:"code"`
	JID  string `json:"jid"`
}

func (r HandleResult) String() string {
	return fmt.Sprintf("code: %s\njid:  %s", r.Code, r.JID)
}

// NewHandleCommand creates the handle command.
func NewHandleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HandleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "handle <code|jid>",
		Short: "Convert between a chat code and its JID",
		Long: `Print both forms of a chat handle. A code such as "JohnSmith" maps to the
JID "|john|smith@domain"; a JID maps back to its code.

Example:
  wally handle JohnSmith
  wally handle '|john|smith@cdhb'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Domain, "domain", "", "chat domain (default from config)")
	return cmd
}

func runHandle(opts *HandleOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format: opts.Format,
		Writer: cmd.OutOrStdout(),
	}

	arg = strings.TrimSpace(arg)
	if arg == "" {
		return NewExitError(ExitCommandError, "empty handle")
	}

	isJID := strings.ContainsAny(arg, "@|")
	domain := opts.Domain
	if domain == "" && isJID {
		domain = model.DomainOf(arg)
	}
	if domain == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		domain = cfg.Chat.Domain
	}

	code := arg
	if isJID {
		code = model.CodeFromJID(arg)
	}
	return formatter.Success(HandleResult{Code: code, JID: model.JIDFromCode(code, domain)})
}
