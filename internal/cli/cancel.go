package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel an order at the provider",
		Long: `Cancel a vote order at the provider, then locally. Cancellation does
not refund; use refund for that. Comment orders and completed orders
cannot be cancelled.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			env, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.engine.Cancel(cmd.Context(), id)
			if err != nil {
				return renderError(formatter, err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(res)
			}
			fmt.Fprintln(formatter.Writer, res.Message)
			return nil
		},
	}
	return cmd
}
