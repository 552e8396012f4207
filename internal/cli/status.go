package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status <order-id>",
		Short:         "Show the locally recorded state of an order",
		Long:          "Show the order as last reconciled. This reads local state only; use refresh to poll the provider.",
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

			ord, err := env.store.GetOrder(cmd.Context(), id)
			if err != nil {
				return renderError(formatter, err)
			}

			view := newOrderView(ord)
			if rootOpts.Format == "json" {
				return formatter.Success(view)
			}
			fmt.Fprintln(formatter.Writer, view.text())
			return nil
		},
	}
	return cmd
}
