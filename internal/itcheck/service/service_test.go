package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	auditrepo "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/repository"
	auditservice "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/service"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&auditdomain.AuditLog{},
		&domain.Entry{},
		&domain.SpeedTest{},
		&domain.InstalledApp{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC))

	audit := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
	return New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		AuditSvc: audit,
	}), conn
}

func mbps(v float64) *float64 { return &v }

func TestUpdateShrinksSpeedTestsToPayload(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := identity.WithIdentity(context.Background(), identity.Identity{ID: 7, Role: identity.RoleStaff})

	created, err := svc.Create(ctx, domain.CreateEntryRequest{EntryFields: domain.EntryFields{
		DeviceName: "LAPTOP-042",
		AssignedTo: "Dana",
		SpeedTests: []domain.SpeedTestInput{
			{DownloadMbps: mbps(100)},
			{DownloadMbps: mbps(120)},
			{DownloadMbps: mbps(90)},
		},
		InstalledApps: []domain.InstalledAppInput{{Name: "Chrome", Licensed: true}},
	}})
	require.NoError(t, err)
	require.Len(t, created.SpeedTests, 3)
	assert.Equal(t, domain.StatusOK, created.Status)
	assert.Equal(t, created.ID+"-2", created.SpeedTests[2].ID)

	updated, err := svc.Update(ctx, created.ID, domain.UpdateEntryRequest{EntryFields: domain.EntryFields{
		DeviceName: "LAPTOP-042",
		AssignedTo: "Dana",
		SpeedTests: []domain.SpeedTestInput{{DownloadMbps: mbps(250), Provider: new(string)}},
	}})
	require.NoError(t, err)

	require.Len(t, updated.SpeedTests, 1)
	assert.Equal(t, created.ID+"-0", updated.SpeedTests[0].ID)
	assert.Equal(t, 250.0, *updated.SpeedTests[0].DownloadMbps)
	assert.Nil(t, updated.SpeedTests[0].Provider)
	assert.Empty(t, updated.InstalledApps)

	var speedRows int64
	require.NoError(t, conn.Table("it_check_speed_tests").Count(&speedRows).Error)
	assert.EqualValues(t, 1, speedRows)

	var actions []string
	require.NoError(t, conn.Table("audit_logs").Order("created_at asc, id asc").Pluck("action", &actions).Error)
	assert.Equal(t, []string{auditdomain.ActionAddEntry, auditdomain.ActionUpdateEntry}, actions)
}

func TestHardwareStoredAsJSON(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateEntryRequest{EntryFields: domain.EntryFields{
		DeviceName: "DESKTOP-7",
		AssignedTo: "Sam",
		Hardware:   map[string]any{"gpu": "RTX 4060", "monitors": 2},
	}})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "RTX 4060", got.Hardware["gpu"])
	assert.EqualValues(t, 2, got.Hardware["monitors"])
}

func TestCreateValidation(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	bad := "broken"

	_, err := svc.Create(ctx, domain.CreateEntryRequest{EntryFields: domain.EntryFields{AssignedTo: "x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidDeviceName)

	_, err = svc.Create(ctx, domain.CreateEntryRequest{EntryFields: domain.EntryFields{DeviceName: "d", AssignedTo: "x", Status: &bad}})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Create(ctx, domain.CreateEntryRequest{EntryFields: domain.EntryFields{
		DeviceName: "d", AssignedTo: "x", InstalledApps: []domain.InstalledAppInput{{Name: " "}},
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidInstalledApp)

	var n int64
	require.NoError(t, conn.Table("it_check_entries").Count(&n).Error)
	assert.Zero(t, n)
}

func TestListFiltersByStatusAndSearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	faulty := domain.StatusFaulty
	finance := "Finance"

	_, err := svc.Create(ctx, domain.CreateEntryRequest{EntryFields: domain.EntryFields{DeviceName: "PC-1", AssignedTo: "Ana", Department: &finance}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateEntryRequest{EntryFields: domain.EntryFields{DeviceName: "PC-2", AssignedTo: "Ben", Status: &faulty}})
	require.NoError(t, err)

	items, err := svc.List(ctx, domain.ListEntryRequest{Status: "faulty"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "PC-2", items[0].DeviceName)

	items, err = svc.List(ctx, domain.ListEntryRequest{Department: "finance"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Ana", items[0].AssignedTo)

	items, err = svc.List(ctx, domain.ListEntryRequest{Search: "pc-"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.List(ctx, domain.ListEntryRequest{Status: "unknown"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDeleteUnknownEntry(t *testing.T) {
	svc, _ := newTestService(t)
	assert.ErrorIs(t, svc.Delete(context.Background(), "12345"), domain.ErrNotFound)
}
