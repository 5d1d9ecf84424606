// Package store selects the persistence backend named by STORE_TYPE and
// exposes its repositories.
package store

import (
	"context"
	"fmt"

	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	auditrepository "github.com/smallbiznis/clinicbill/internal/audit/repository"
	"github.com/smallbiznis/clinicbill/internal/config"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/clinicbill/internal/invoice/repository"
	"github.com/smallbiznis/clinicbill/internal/migration"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
	paymentrepository "github.com/smallbiznis/clinicbill/internal/payment/repository"
	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/clinicbill/internal/sequence/repository"
	settingsdomain "github.com/smallbiznis/clinicbill/internal/settings/domain"
	settingsrepository "github.com/smallbiznis/clinicbill/internal/settings/repository"
	"github.com/smallbiznis/clinicbill/internal/store/memory"
	"github.com/smallbiznis/clinicbill/internal/store/mongo"
	"github.com/smallbiznis/clinicbill/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Backend bundles the repositories of one store with its migrate and close
// hooks.
type Backend struct {
	Kind string

	Invoices  invoicedomain.Repository
	Payments  paymentdomain.Repository
	Sequences sequencedomain.Repository
	AuditLogs auditdomain.Repository
	Settings  settingsdomain.Repository

	migrate func(ctx context.Context) error
	ping    func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// Open connects to the backend configured in cfg. It does not migrate.
func Open(cfg config.Config, log *zap.Logger) (*Backend, error) {
	switch cfg.StoreType {
	case config.StoreMemory:
		return openMemory(), nil
	case config.StoreMongo:
		return openMongo(cfg)
	case config.StoreSQL, "":
		return openSQL(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported store type %q", cfg.StoreType)
	}
}

func (b *Backend) Migrate(ctx context.Context) error {
	if b.migrate == nil {
		return nil
	}
	return b.migrate(ctx)
}

func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

func (b *Backend) Close(ctx context.Context) error {
	if b.close == nil {
		return nil
	}
	return b.close(ctx)
}

func openMemory() *Backend {
	s := memory.New()
	return &Backend{
		Kind:      config.StoreMemory,
		Invoices:  s.Invoices(),
		Payments:  s.Payments(),
		Sequences: s.Sequences(),
		AuditLogs: s.AuditLogs(),
		Settings:  s.Settings(),
	}
}

func openMongo(cfg config.Config) (*Backend, error) {
	s, err := mongo.Connect(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Kind:      config.StoreMongo,
		Invoices:  s.Invoices(),
		Payments:  s.Payments(),
		Sequences: s.Sequences(),
		AuditLogs: s.AuditLogs(),
		Settings:  s.Settings(),
		migrate:   s.Migrate,
		ping:      s.Ping,
		close:     s.Close,
	}, nil
}

func openSQL(cfg config.Config, log *zap.Logger) (*Backend, error) {
	conn, err := db.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewSQLBackend(conn), nil
}

// NewSQLBackend wraps an open gorm connection.
func NewSQLBackend(conn *gorm.DB) *Backend {
	return &Backend{
		Kind:      config.StoreSQL,
		Invoices:  invoicerepository.Provide(conn),
		Payments:  paymentrepository.Provide(conn),
		Sequences: sequencerepository.Provide(conn),
		AuditLogs: auditrepository.Provide(conn),
		Settings:  settingsrepository.Provide(conn),
		migrate: func(context.Context) error {
			return migration.Run(conn)
		},
		ping: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}
