package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/clinicbill/pkg/db/pagination"
)

type Entry struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Repository interface {
	Insert(ctx context.Context, entry *AuditLog) error
	// List returns up to filter.Limit+1 entries, newest first.
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}

type Service interface {
	AuditLog(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidAction    = errors.New("invalid_action")
)
