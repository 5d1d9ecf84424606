package store

import (
	"context"

	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	"github.com/smallbiznis/clinicbill/internal/config"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("store",
	fx.Provide(provideBackend),
	fx.Provide(provideRepositories),
)

type Repositories struct {
	fx.Out

	Invoices  invoicedomain.Repository
	Payments  paymentdomain.Repository
	Sequences sequencedomain.Repository
	AuditLogs auditdomain.Repository
	Settings  settingsdomain.Repository
}

func provideBackend(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Backend, error) {
	backend, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}
	log = log.Named("store")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := backend.Ping(ctx); err != nil {
				return err
			}
			if !cfg.AutoMigrate {
				return nil
			}
			if err := backend.Migrate(ctx); err != nil {
				return err
			}
			log.Info("store migrated", zap.String("store", backend.Kind))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return backend.Close(ctx)
		},
	})
	return backend, nil
}

func provideRepositories(b *Backend) Repositories {
	return Repositories{
		Invoices:  b.Invoices,
		Payments:  b.Payments,
		Sequences: b.Sequences,
		AuditLogs: b.AuditLogs,
		Settings:  b.Settings,
	}
}
