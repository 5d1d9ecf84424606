package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/clinicbill/internal/audit/repository"
	"github.com/smallbiznis/clinicbill/internal/auditcontext"
	"github.com/smallbiznis/clinicbill/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(db),
		Clock: clk,
	})
	return svc, clk
}

func TestAuditLogCapturesRequestMetadata(t *testing.T) {
	svc, _ := newTestService(t)

	ctx := auditcontext.WithRequestID(context.Background(), "req-1")
	ctx = auditcontext.WithIPAddress(ctx, "10.1.1.1")

	err := svc.AuditLog(ctx, auditdomain.Entry{
		ActorID:    "cashier-1",
		Action:     "invoice.voided",
		TargetType: "invoice",
		TargetID:   "42",
		Metadata:   map[string]any{"reason": "duplicate", "note": "call 012345678"},
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: "invoice", TargetID: "42"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "invoice.voided", entry.Action)
	assert.Equal(t, string(auditdomain.ActorTypeUser), entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "cashier-1", *entry.ActorID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.1.1.1", *entry.IPAddress)
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	assert.Equal(t, "duplicate", entry.Metadata["reason"])
	assert.Equal(t, "****5678", entry.Metadata["note"])
}

func TestAuditLogRequiresAction(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.AuditLog(context.Background(), auditdomain.Entry{Action: " "})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for _, action := range []string{"invoice.created", "invoice.finalized", "invoice.payment_recorded"} {
		require.NoError(t, svc.AuditLog(ctx, auditdomain.Entry{Action: action, TargetType: "invoice", TargetID: "7"}))
		clk.Advance(time.Minute)
	}

	req := auditdomain.ListAuditLogRequest{TargetID: "7"}
	req.PageSize = 2
	first, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "invoice.payment_recorded", first.AuditLogs[0].Action)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), first.AuditLogs[0].ActorType)

	req.PageToken = first.NextPageToken
	second, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "invoice.created", second.AuditLogs[0].Action)
}

func TestListRejectsBadToken(t *testing.T) {
	svc, _ := newTestService(t)
	req := auditdomain.ListAuditLogRequest{}
	req.PageToken = "not-a-token"
	_, err := svc.List(context.Background(), req)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
