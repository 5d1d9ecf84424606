package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	"github.com/smallbiznis/clinicbill/internal/audit/masking"
	"github.com/smallbiznis/clinicbill/internal/auditcontext"
	"github.com/smallbiznis/clinicbill/internal/clock"
	"github.com/smallbiznis/clinicbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) AuditLog(ctx context.Context, in auditdomain.Entry) error {
	action := strings.TrimSpace(in.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(in.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	meta := auditcontext.FromContext(ctx)
	actorType, actorID := resolveActor(in.ActorID, meta.ActorID)

	payload := masking.MaskMetadata(in.Metadata)
	if meta.RequestID != "" {
		if payload == nil {
			payload = map[string]any{}
		}
		payload["request_id"] = meta.RequestID
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  string(actorType),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   optional(in.TargetID),
		Metadata:   datatypes.JSONMap(payload),
		IPAddress:  optional(meta.IPAddress),
		UserAgent:  optional(meta.UserAgent),
		CreatedAt:  s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	var cursor *auditdomain.AuditCursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: createdAt}
	}

	limit := req.Size()
	items, err := s.repo.List(ctx, auditdomain.ListFilter{
		Action:     strings.TrimSpace(req.Action),
		TargetType: strings.TrimSpace(req.TargetType),
		TargetID:   strings.TrimSpace(req.TargetID),
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(item *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item != nil {
			logs = append(logs, *item)
		}
	}
	return auditdomain.ListAuditLogResponse{PageInfo: pageInfo, AuditLogs: logs}, nil
}

func resolveActor(explicit, fromContext string) (auditdomain.ActorType, *string) {
	if id := optional(explicit); id != nil {
		return auditdomain.ActorTypeUser, id
	}
	if id := optional(fromContext); id != nil {
		return auditdomain.ActorTypeUser, id
	}
	return auditdomain.ActorTypeSystem, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
