package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/repository"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, cap int) (auditdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}, &auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	settings := config.DefaultSettings()
	settings.AuditListCap = cap
	clk := clock.NewFakeClock(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Settings: config.NewStaticSettings(settings),
	})
	return svc, conn, clk
}

func TestListNewestFirstWithActorName(t *testing.T) {
	svc, conn, clk := newTestService(t, 500)
	ctx := context.Background()

	require.NoError(t, conn.Exec(
		`INSERT INTO users (id, username, name, password_hash, role, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(10), "ops", "Ops Lead", "x", identity.RoleAdmin, true, clk.Now(), clk.Now(),
	).Error)
	actorCtx := identity.WithIdentity(ctx, identity.Identity{ID: 10, Role: identity.RoleAdmin})

	svc.Record(actorCtx, auditdomain.Entry{Action: auditdomain.ActionAddEntry, TargetType: "license", TargetID: "1", TargetName: "Office365"})
	clk.Advance(time.Minute)
	svc.Record(actorCtx, auditdomain.Entry{Action: auditdomain.ActionUpdateEntry, TargetType: "license", TargetID: "1"})
	clk.Advance(time.Minute)
	svc.Record(ctx, auditdomain.Entry{Action: auditdomain.ActionLoginFailed, TargetType: "user", TargetName: "ghost"})

	logs, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, logs, 3)

	assert.Equal(t, auditdomain.ActionLoginFailed, logs[0].Action)
	assert.Nil(t, logs[0].ActorID)
	assert.Nil(t, logs[0].ActorName)

	assert.Equal(t, auditdomain.ActionUpdateEntry, logs[1].Action)
	require.NotNil(t, logs[1].ActorName)
	assert.Equal(t, "Ops Lead", *logs[1].ActorName)

	assert.Equal(t, auditdomain.ActionAddEntry, logs[2].Action)
}

func TestListBoundedByCap(t *testing.T) {
	svc, _, clk := newTestService(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Record(ctx, auditdomain.Entry{Action: auditdomain.ActionAddEntry, TargetType: "ticket"})
		clk.Advance(time.Second)
	}

	logs, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	logs, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestRecordTxRollsBackWithWriter(t *testing.T) {
	svc, conn, _ := newTestService(t, 500)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(ctx, conn, time.Second, func(tx *gorm.DB) error {
		if err := svc.RecordTx(ctx, tx, auditdomain.Entry{Action: auditdomain.ActionAddEntry, TargetType: "license"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM audit_logs`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestRecordMasksSensitiveMetadata(t *testing.T) {
	svc, _, _ := newTestService(t, 500)
	ctx := context.Background()

	svc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdateEntry,
		TargetType: "password_entry",
		Metadata:   map[string]any{"password": "correct-horse-battery", "title": "VPN"},
	})

	logs, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "VPN", logs[0].Metadata["title"])
	assert.Equal(t, "****tery", logs[0].Metadata["password"])
}

func TestRecordTxRejectsEmptyAction(t *testing.T) {
	svc, conn, _ := newTestService(t, 500)
	err := svc.RecordTx(context.Background(), conn, auditdomain.Entry{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}
