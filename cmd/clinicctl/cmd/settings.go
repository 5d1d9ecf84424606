package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change invoice settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings (invoice.yml plus stored overrides)",
	RunE: func(cmd *cobra.Command, args []string) error {
		overridesOnly, _ := cmd.Flags().GetBool("overrides")
		return withServices(cmd, func(ctx context.Context, svc services) error {
			if overridesOnly {
				overrides, err := svc.Settings.Overrides(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), overrides)
			}
			current, err := svc.Settings.Get(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), current)
		})
	},
}

var settingsApplyCmd = &cobra.Command{
	Use:   "apply <overrides.json>",
	Short: "Replace the stored overrides with the contents of a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var overrides settingsdomain.Overrides
		if err := json.Unmarshal(raw, &overrides); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		return withServices(cmd, func(ctx context.Context, svc services) error {
			current, err := svc.Settings.SaveOverrides(ctx, overrides, actorFlag(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), current)
		})
	},
}

var sequencePeekCmd = &cobra.Command{
	Use:   "next-number",
	Short: "Show the invoice number the next finalize would assign",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc services) error {
			current, err := svc.Settings.Get(ctx)
			if err != nil {
				return err
			}
			next, err := svc.Sequences.Peek(ctx, current.Numbering.Request(svc.Clock.Now()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next.Number)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsApplyCmd, sequencePeekCmd)

	settingsShowCmd.Flags().Bool("overrides", false, "print only the stored overrides")
}
