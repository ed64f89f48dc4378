package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spiffcs/linksync/internal/log"
)

// NewCmdAuth creates the auth command.
func NewCmdAuth(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect GitHub credentials",
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Acquire a token and list the repositories it can reach",
		Long: `Acquire an access token with the configured strategy (GitHub App or the
ambient CI token) and list the repositories the token can access, with its
permissions and expiry. The token itself is never printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd, opts)
		},
	}
	status.Flags().StringVarP(&opts.Format, "format", "o", "", "Output format (table, json, markdown)")
	cmd.AddCommand(status)
	return cmd
}

func runAuthStatus(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()
	rt, cleanup, err := setupSession(ctx, opts, false)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx = log.WithContext(ctx)

	formatter, err := rt.formatter()
	if err != nil {
		return err
	}

	result, err := rt.provider.TestConnectivity(ctx)
	if err != nil {
		return err
	}
	if err := formatter.FormatConnectivity(result, cmd.OutOrStdout()); err != nil {
		return err
	}
	if !result.Success {
		return errors.New("authentication check failed")
	}
	return nil
}
