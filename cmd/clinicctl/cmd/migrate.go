package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the store schema and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc services) error {
			if err := svc.Backend.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store migrated\n", svc.Backend.Kind)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
