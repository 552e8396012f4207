package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmoore22/boostd/internal/engine"
	"github.com/tmoore22/boostd/internal/order"
)

// NewSubmitCommand creates the submit command group.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new order",
	}
	cmd.AddCommand(newSubmitVoteCommand(rootOpts))
	cmd.AddCommand(newSubmitCommentCommand(rootOpts))
	return cmd
}

func newSubmitVoteCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID   int64
		quantity int64
		service  string
		speed    string
	)

	cmd := &cobra.Command{
		Use:   "vote <target-link>",
		Short: "Submit a vote order",
		Long: `Submit a vote order: the price is computed from the catalog, the
balance is debited atomically with order creation, and the order is
handed to the provider.

Example:
  boostd submit vote https://example.com/p/42 --user 7 --quantity 100 --service upvotes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(rootOpts, cmd, engine.OrderRequest{
				OwnerID:     userID,
				Kind:        order.KindVote,
				TargetLink:  args[0],
				Quantity:    quantity,
				ServiceKind: service,
				Speed:       speed,
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "ordering user id (required)")
	cmd.Flags().Int64Var(&quantity, "quantity", 0, "vote quantity (required)")
	cmd.Flags().StringVar(&service, "service", "", "catalog service id (required)")
	cmd.Flags().StringVar(&speed, "speed", "", "delivery speed (default: service's first speed)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("quantity")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}

func newSubmitCommentCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID  int64
		content string
	)

	cmd := &cobra.Command{
		Use:           "comment <target-link>",
		Short:         "Submit a comment order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(rootOpts, cmd, engine.OrderRequest{
				OwnerID:    userID,
				Kind:       order.KindComment,
				TargetLink: args[0],
				Content:    content,
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "ordering user id (required)")
	cmd.Flags().StringVar(&content, "content", "", "comment body (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func runSubmit(opts *RootOptions, cmd *cobra.Command, req engine.OrderRequest) error {
	formatter := newFormatter(opts, cmd)

	env, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.engine.Submit(cmd.Context(), req)
	if err != nil {
		// A rejection after the debit still produced a result: the
		// order exists and the charge was refunded. Say so.
		if engine.IsProviderRejected(err) && opts.Format == "text" {
			fmt.Fprintln(formatter.Writer, res.Message)
		}
		return renderError(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(res)
	}
	fmt.Fprintln(formatter.Writer, res.Message)
	return nil
}

// NewResubmitCommand creates the resubmit command.
func NewResubmitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "resubmit <order-id>",
		Short:         "Re-dispatch an order parked by an unreachable provider",
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

			res, err := env.engine.Resubmit(cmd.Context(), id)
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
