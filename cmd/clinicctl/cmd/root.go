package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicbill/internal/audit"
	"github.com/smallbiznis/clinicbill/internal/cache"
	"github.com/smallbiznis/clinicbill/internal/clock"
	"github.com/smallbiznis/clinicbill/internal/config"
	"github.com/smallbiznis/clinicbill/internal/invoice"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	"github.com/smallbiznis/clinicbill/internal/observability"
	"github.com/smallbiznis/clinicbill/internal/sequence"
	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"github.com/smallbiznis/clinicbill/internal/settings"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	"github.com/smallbiznis/clinicbill/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "clinicctl",
	Short: "Operator CLI for the clinic invoice engine",
	Long: `clinicctl runs invoice lifecycle operations directly against the configured
store. It reads the same environment and invoice.yml as the HTTP server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("actor", "", "user id recorded in the audit log")
}

// services are the collaborators a command can use.
type services struct {
	Backend   *store.Backend
	Invoices  invoicedomain.Service
	Settings  settingsdomain.Service
	Sequences sequencedomain.Service
	Clock     clock.Clock
}

// withServices boots the same module graph as the server, minus HTTP, and
// stops it once fn returns.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc services) error) error {
	var svc services
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		clock.Module,
		store.Module,
		cache.Module,
		audit.Module,
		settings.Module,
		sequence.Module,
		invoice.Module,
		fx.Populate(&svc.Backend, &svc.Invoices, &svc.Settings, &svc.Sequences, &svc.Clock),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(context.WithoutCancel(ctx))
	}()

	return fn(ctx, svc)
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

func actorFlag(cmd *cobra.Command) string {
	actor, _ := cmd.Flags().GetString("actor")
	if actor == "" {
		actor = os.Getenv("CLINICCTL_ACTOR")
	}
	return actor
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
