package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh <order-id>",
		Short: "Poll the provider and reconcile one order",
		Long: `Poll the provider for an order's current status and merge it into the
local record. Polls are rate limited; inside the cooldown window the
command reports when the order was last checked instead of polling.`,
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

			res, err := env.engine.RefreshStatus(cmd.Context(), id)
			if err != nil {
				return renderError(formatter, err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(res)
			}
			if res.Updated {
				fmt.Fprintf(formatter.Writer, "order #%d is %s (%d delivered)\n", id, res.Status, res.DeliveredCount)
			} else {
				fmt.Fprintln(formatter.Writer, res.Message)
			}
			return nil
		},
	}
	return cmd
}

// NewRefreshAllCommand creates the refresh-all command.
func NewRefreshAllCommand(rootOpts *RootOptions) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "refresh-all",
		Short: "Reconcile every refreshable order of a user",
		Long: `Poll the provider for every non-terminal tracked order of a user, in
paced batches. Per-order failures are counted, never fatal.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			env, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			ids, err := env.store.ListEligibleForRefresh(cmd.Context(), userID)
			if err != nil {
				return renderError(formatter, err)
			}
			formatter.VerboseLog("refreshing %d order(s)", len(ids))

			res, err := env.engine.RefreshMany(cmd.Context(), ids)
			if err != nil {
				return renderError(formatter, err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(res)
			}
			fmt.Fprintf(formatter.Writer, "refreshed %d order(s): %d updated, %d failed\n",
				len(ids), res.UpdatedCount, res.FailedCount)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user whose orders to refresh (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
