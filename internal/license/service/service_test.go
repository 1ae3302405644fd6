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
	auditrepo "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/repository"
	auditservice "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/service"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/license/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/license/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type failingAudit struct {
	auditdomain.Service
}

func (failingAudit) RecordTx(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	return errors.New("audit store unavailable")
}

func newTestService(t *testing.T, audit auditdomain.Service) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&auditdomain.AuditLog{},
		&domain.License{},
		&domain.Addon{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	if audit == nil {
		audit = auditservice.NewService(auditservice.Params{
			DB:    conn,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: clk,
			Repo:  auditrepo.Provide(),
		})
	}

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		AuditSvc: audit,
	})
	return svc, conn, clk
}

func strPtr(v string) *string { return &v }

func countRows(t *testing.T, conn *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Table(table).Count(&n).Error)
	return n
}

func TestCreateWritesAddonsAndAuditTogether(t *testing.T) {
	svc, conn, _ := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateLicenseRequest{LicenseFields: domain.LicenseFields{
		Name:       "Office 365",
		LicenseKey: "AAAA-BBBB-CCCC-DDDD",
		ExpiryDate: strPtr("2026-03-11"),
		Addons: []domain.AddonInput{
			{Name: "Visio"},
			{Name: "Project", ExpiryDate: strPtr("2026-12-31")},
		},
	}})
	require.NoError(t, err)

	require.Len(t, resp.Addons, 2)
	assert.Equal(t, resp.ID+"-0", resp.Addons[0].ID)
	assert.Equal(t, "Visio", resp.Addons[0].Name)
	assert.Equal(t, resp.ID+"-1", resp.Addons[1].ID)
	assert.True(t, resp.Active)
	require.NotNil(t, resp.DaysToExpiry)
	assert.Equal(t, 10, *resp.DaysToExpiry)
	assert.False(t, resp.Expired)

	var logs []auditdomain.AuditLog
	require.NoError(t, conn.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, auditdomain.ActionAddEntry, logs[0].Action)
	assert.Equal(t, "license", logs[0].TargetType)
	require.NotNil(t, logs[0].TargetID)
	assert.Equal(t, resp.ID, *logs[0].TargetID)
}

func TestUpdateReplacesAddonsAndNullsOmittedFields(t *testing.T) {
	svc, conn, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateLicenseRequest{LicenseFields: domain.LicenseFields{
		Name:       "Adobe CC",
		LicenseKey: "KEY-1",
		Vendor:     strPtr("Adobe"),
		Addons:     []domain.AddonInput{{Name: "Fonts"}, {Name: "Stock"}, {Name: "Cloud"}},
	}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.UpdateLicenseRequest{LicenseFields: domain.LicenseFields{
		Name:       "Adobe CC",
		LicenseKey: "KEY-2",
		Vendor:     strPtr("   "),
		Addons:     []domain.AddonInput{{Name: "Stock"}},
	}})
	require.NoError(t, err)

	assert.Equal(t, "KEY-2", updated.LicenseKey)
	assert.Nil(t, updated.Vendor)
	require.Len(t, updated.Addons, 1)
	assert.Equal(t, created.ID+"-0", updated.Addons[0].ID)
	assert.Equal(t, "Stock", updated.Addons[0].Name)
	assert.EqualValues(t, 1, countRows(t, conn, "license_addons"))

	var vendorNulls int64
	require.NoError(t, conn.Table("software_licenses").Where("vendor IS NULL").Count(&vendorNulls).Error)
	assert.EqualValues(t, 1, vendorNulls)
}

func TestAuditFailureRollsBackWrite(t *testing.T) {
	svc, conn, _ := newTestService(t, failingAudit{})

	_, err := svc.Create(context.Background(), domain.CreateLicenseRequest{LicenseFields: domain.LicenseFields{
		Name:       "Slack",
		LicenseKey: "SLK",
		Addons:     []domain.AddonInput{{Name: "Huddles"}},
	}})
	require.Error(t, err)

	assert.Zero(t, countRows(t, conn, "software_licenses"))
	assert.Zero(t, countRows(t, conn, "license_addons"))
}

func TestValidationFailsBeforeTransaction(t *testing.T) {
	svc, conn, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		fields domain.LicenseFields
		want   error
	}{
		{"missing name", domain.LicenseFields{LicenseKey: "K"}, domain.ErrInvalidName},
		{"missing key", domain.LicenseFields{Name: "N"}, domain.ErrInvalidLicenseKey},
		{"bad expiry", domain.LicenseFields{Name: "N", LicenseKey: "K", ExpiryDate: strPtr("31/12/2026")}, domain.ErrInvalidExpiryDate},
		{"negative seats", domain.LicenseFields{Name: "N", LicenseKey: "K", Seats: func() *int64 { v := int64(-1); return &v }()}, domain.ErrInvalidSeats},
		{"addon without name", domain.LicenseFields{Name: "N", LicenseKey: "K", Addons: []domain.AddonInput{{}}}, domain.ErrInvalidAddon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, domain.CreateLicenseRequest{LicenseFields: tt.fields})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, countRows(t, conn, "software_licenses"))
	assert.Zero(t, countRows(t, conn, "audit_logs"))
}

func TestListExpiringWithinDays(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, in := range []domain.LicenseFields{
		{Name: "Soon", LicenseKey: "A", ExpiryDate: strPtr("2026-03-05")},
		{Name: "Later", LicenseKey: "B", ExpiryDate: strPtr("2026-09-01")},
		{Name: "Lapsed", LicenseKey: "C", ExpiryDate: strPtr("2026-02-01")},
		{Name: "Perpetual", LicenseKey: "D"},
	} {
		_, err := svc.Create(ctx, domain.CreateLicenseRequest{LicenseFields: in})
		require.NoError(t, err)
	}

	within := 30
	items, err := svc.List(ctx, domain.ListLicenseRequest{ExpiringWithinDays: &within})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Lapsed", items[0].Name)
	assert.True(t, items[0].Expired)
	assert.Equal(t, "Soon", items[1].Name)

	all, err := svc.List(ctx, domain.ListLicenseRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	negative := -1
	_, err = svc.List(ctx, domain.ListLicenseRequest{ExpiringWithinDays: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}

func TestDeleteRemovesAddonsAndAudits(t *testing.T) {
	svc, conn, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateLicenseRequest{LicenseFields: domain.LicenseFields{
		Name: "Zoom", LicenseKey: "Z", Addons: []domain.AddonInput{{Name: "Webinar"}},
	}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Zero(t, countRows(t, conn, "software_licenses"))
	assert.Zero(t, countRows(t, conn, "license_addons"))

	var deletes int64
	require.NoError(t, conn.Table("audit_logs").Where("action = ?", auditdomain.ActionDeleteEntry).Count(&deletes).Error)
	assert.EqualValues(t, 1, deletes)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), domain.ErrNotFound)
	_, err = svc.Get(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
