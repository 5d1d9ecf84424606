package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <invoice-id>",
	Short: "Compute an invoice's totals without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc services) error {
			result, err := svc.Invoices.Preview(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <invoice-id>",
	Short: "Finalize a draft invoice, or recompute totals of a final one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc services) error {
			result, err := svc.Invoices.Finalize(ctx, args[0], actorFlag(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var voidCmd = &cobra.Command{
	Use:     "void <invoice-id>",
	Short:   "Void a final invoice",
	Example: `  clinicctl void 1823401234567 --reason "duplicate visit" --actor admin`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		if reason == "" {
			return errors.New("--reason is required")
		}
		return withServices(cmd, func(ctx context.Context, svc services) error {
			inv, err := svc.Invoices.Void(ctx, args[0], actorFlag(cmd), reason)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), inv)
		})
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute <invoice-id>",
	Short: "Re-derive payment status from the payment ledger",
	Long: `recompute reloads every payment and refund of the invoice and rewrites the
payment status and aggregate amounts. Use it when a payment was stored but the
status update failed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc services) error {
			result, err := svc.Invoices.RecomputePaymentStatus(ctx, args[0], actorFlag(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

func init() {
	rootCmd.AddCommand(previewCmd, finalizeCmd, voidCmd, recomputeCmd)

	voidCmd.Flags().String("reason", "", "reason recorded on the invoice and in the audit log")
}
