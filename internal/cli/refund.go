package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefundCommand creates the refund command.
func NewRefundCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund <order-id>",
		Short: "Refund an order's charge and cancel it",
		Long: `Credit the exact original charge back to the owner and mark the order
cancelled, atomically. Idempotent: refunding an already-cancelled order
is a no-op. Completed orders cannot be refunded.`,
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

			res, err := env.engine.ManualRefund(cmd.Context(), id)
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
