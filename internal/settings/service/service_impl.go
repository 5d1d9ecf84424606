package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	"github.com/smallbiznis/clinicbill/internal/cache"
	"github.com/smallbiznis/clinicbill/internal/clock"
	"github.com/smallbiznis/clinicbill/internal/config"
	"github.com/smallbiznis/clinicbill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const redisKey = "clinicbill:settings:" + domain.GlobalID

type Params struct {
	fx.In

	Log    *zap.Logger
	Cfg    config.Config
	Repo   domain.Repository
	Holder *config.InvoiceSettingsHolder
	Clock  clock.Clock
	Redis  *redis.Client       `optional:"true"`
	Audit  auditdomain.Service `optional:"true"`
}

// Service merges invoice.yml with the stored overrides document. Only the
// overrides are cached, so file reloads apply immediately.
type Service struct {
	log    *zap.Logger
	repo   domain.Repository
	holder *config.InvoiceSettingsHolder
	clock  clock.Clock
	redis  *redis.Client
	audit  auditdomain.Service
	local  cache.Cache[string, domain.Overrides]
	ttl    time.Duration
}

func NewService(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("settings.service"),
		repo:   p.Repo,
		holder: p.Holder,
		clock:  p.Clock,
		redis:  p.Redis,
		audit:  p.Audit,
		local:  cache.NewTTLCache[string, domain.Overrides](),
		ttl:    p.Cfg.SettingsCacheTTL,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	overrides, err := s.Overrides(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	resolved := overrides.Apply(FromFile(s.holder.Get()))
	if err := resolved.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return resolved, nil
}

func (s *Service) Overrides(ctx context.Context) (domain.Overrides, error) {
	if cached, ok := s.cached(ctx); ok {
		return cached, nil
	}

	doc, err := s.repo.Get(ctx, domain.GlobalID)
	if err != nil {
		return domain.Overrides{}, err
	}
	var overrides domain.Overrides
	if doc != nil && len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &overrides); err != nil {
			return domain.Overrides{}, fmt.Errorf("%w: stored overrides: %v", domain.ErrInvalidSettings, err)
		}
	}
	s.store(ctx, overrides)
	return overrides, nil
}

func (s *Service) SaveOverrides(ctx context.Context, overrides domain.Overrides, actorID string) (domain.Settings, error) {
	resolved := overrides.Apply(FromFile(s.holder.Get()))
	if err := resolved.Validate(); err != nil {
		return domain.Settings{}, err
	}

	payload, err := json.Marshal(overrides)
	if err != nil {
		return domain.Settings{}, err
	}
	doc := &domain.Document{
		ID:        domain.GlobalID,
		Data:      datatypes.JSON(payload),
		UpdatedBy: actorID,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return domain.Settings{}, err
	}
	s.invalidate(ctx)

	if s.audit != nil {
		if err := s.audit.AuditLog(ctx, auditdomain.Entry{
			ActorID:    actorID,
			Action:     "settings.updated",
			TargetType: "settings",
			TargetID:   domain.GlobalID,
			Metadata: map[string]any{
				"calculation_order": string(resolved.CalculationOrder),
				"base_currency":     resolved.BaseCurrency,
				"refund_policy":     string(resolved.RefundPolicy),
			},
		}); err != nil {
			s.log.Warn("failed to audit settings update", zap.Error(err))
		}
	}
	s.log.Info("settings overrides saved", zap.String("actor_id", actorID))
	return resolved, nil
}

func (s *Service) cached(ctx context.Context) (domain.Overrides, bool) {
	if s.ttl <= 0 {
		return domain.Overrides{}, false
	}
	if s.redis == nil {
		return s.local.Get(redisKey)
	}

	raw, err := s.redis.Get(ctx, redisKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("settings cache read failed", zap.Error(err))
		}
		return domain.Overrides{}, false
	}
	var overrides domain.Overrides
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return domain.Overrides{}, false
	}
	return overrides, true
}

func (s *Service) store(ctx context.Context, overrides domain.Overrides) {
	if s.ttl <= 0 {
		return
	}
	if s.redis == nil {
		s.local.Set(redisKey, overrides, s.ttl)
		return
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, redisKey, raw, s.ttl).Err(); err != nil {
		s.log.Warn("settings cache write failed", zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	s.local.Delete(redisKey)
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil {
		s.log.Warn("settings cache invalidate failed", zap.Error(err))
	}
}
