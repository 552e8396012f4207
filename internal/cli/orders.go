package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmoore22/boostd/internal/order"
)

// NewOrdersCommand creates the orders listing command.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:           "orders",
		Short:         "List a user's orders, newest first",
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

			orders, err := env.store.ListOrders(cmd.Context(), userID)
			if err != nil {
				return renderError(formatter, err)
			}

			views := make([]orderView, 0, len(orders))
			for _, o := range orders {
				views = append(views, newOrderView(o))
			}

			if rootOpts.Format == "json" {
				return formatter.Success(views)
			}
			if len(views) == 0 {
				fmt.Fprintf(formatter.Writer, "no orders for user %d\n", userID)
				return nil
			}
			for _, v := range views {
				progress := ""
				if v.Kind == string(order.KindVote) {
					progress = fmt.Sprintf(" %d/%d", v.DeliveredCount, v.Quantity)
				}
				fmt.Fprintf(formatter.Writer, "#%-4d %-8s %-22s%s  %s\n",
					v.ID, v.Kind, v.Status, progress, v.TargetLink)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user whose orders to list (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// NewTxnsCommand creates the ledger listing command.
func NewTxnsCommand(rootOpts *RootOptions) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:           "txns",
		Short:         "List a user's ledger history, newest first",
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

			ctx := cmd.Context()
			txns, err := env.store.ListTransactions(ctx, userID)
			if err != nil {
				return renderError(formatter, err)
			}
			balance, err := env.store.Balance(ctx, userID)
			if err != nil {
				return renderError(formatter, err)
			}

			views := make([]txnView, 0, len(txns))
			for _, t := range txns {
				views = append(views, newTxnView(t))
			}

			if rootOpts.Format == "json" {
				return formatter.Success(struct {
					Balance      int64     `json:"balance"`
					Transactions []txnView `json:"transactions"`
				}{balance, views})
			}
			fmt.Fprintf(formatter.Writer, "balance: %d\n", balance)
			for _, v := range views {
				fmt.Fprintln(formatter.Writer, v.text())
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user whose ledger to list (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// NewDepositCommand creates the deposit command.
func NewDepositCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID int64
		amount int64
	)

	cmd := &cobra.Command{
		Use:           "deposit",
		Short:         "Credit a user's balance",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			if amount <= 0 {
				return NewExitError(ExitCommandError, "deposit amount must be positive")
			}

			env, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			if err := env.store.EnsureAccount(ctx, userID); err != nil {
				return renderError(formatter, err)
			}
			if _, err := env.store.Credit(ctx, userID, amount, order.TxnDeposit, "deposit", nil); err != nil {
				return renderError(formatter, err)
			}
			balance, err := env.store.Balance(ctx, userID)
			if err != nil {
				return renderError(formatter, err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(struct {
					UserID  int64 `json:"user_id"`
					Balance int64 `json:"balance"`
				}{userID, balance})
			}
			fmt.Fprintf(formatter.Writer, "deposited %d, balance is now %d\n", amount, balance)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user to credit (required)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "amount in cents (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
