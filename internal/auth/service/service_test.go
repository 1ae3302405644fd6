package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/password"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/token"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) RecordTx(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	return m.Called(entry.Action).Error(0)
}

func (m *mockAudit) Record(ctx context.Context, entry auditdomain.Entry) {
	m.Called(entry.Action)
}

func (m *mockAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) ([]auditdomain.AuditLogView, error) {
	return nil, nil
}

type fixture struct {
	svc   authdomain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	audit *mockAudit
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&authdomain.User{}, &authdomain.UserPermission{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	audit := &mockAudit{}
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		Repo:     repository.Provide(),
		Tokens:   token.NewIssuer(token.Config{Secret: "test-secret", Issuer: "itstaffcheck", TTL: time.Hour}, clk),
		AuditSvc: audit,
	})
	return fixture{svc: svc, db: conn, clock: clk, audit: audit}
}

func seedUser(t *testing.T, conn *gorm.DB, id int64, username, role string, active bool, perms ...string) {
	t.Helper()
	hashed, err := password.Hash("correct-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	if err := conn.Exec(
		`INSERT INTO users (id, username, name, password_hash, role, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, username, "User "+username, hashed, role, active, now, now,
	).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	for i, perm := range perms {
		if err := conn.Exec(
			`INSERT INTO user_permissions (id, user_id, permission, position) VALUES (?, ?, ?, ?)`,
			fmt.Sprintf("%d-%d", id, i), id, perm, i,
		).Error; err != nil {
			t.Fatalf("insert permission: %v", err)
		}
	}
}

func TestLoginWrongPasswordIsAudited(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.db, 100, "alice", identity.RoleStaff, true)
	f.audit.On("Record", auditdomain.ActionLoginFailed).Once()

	_, err := f.svc.Login(context.Background(), authdomain.LoginRequest{Username: "alice", Password: "wrong-password"})
	if err != authdomain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	f.audit.AssertExpectations(t)
}

func TestLoginThenAuthenticateLoadsPermissions(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.db, 101, "bob", identity.RoleStaff, true, identity.PermissionTickets, identity.PermissionLicenses)
	f.audit.On("Record", auditdomain.ActionLogin).Once()

	result, err := f.svc.Login(context.Background(), authdomain.LoginRequest{Username: " Bob ", Password: "correct-password"})
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().Add(time.Hour), result.ExpiresAt)

	id, err := f.svc.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	require.EqualValues(t, 101, id.ID)
	require.Equal(t, identity.RoleStaff, id.Role)
	require.Equal(t, []string{identity.PermissionTickets, identity.PermissionLicenses}, id.Permissions)
}

func TestAuthenticateReadsRoleFromStore(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.db, 102, "carol", identity.RoleViewer, true)
	f.audit.On("Record", mock.Anything)

	result, err := f.svc.Login(context.Background(), authdomain.LoginRequest{Username: "carol", Password: "correct-password"})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(`UPDATE users SET role = ? WHERE id = ?`, identity.RoleAdmin, 102).Error)
	id, err := f.svc.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, identity.RoleAdmin, id.Role)

	require.NoError(t, f.db.Exec(`UPDATE users SET active = ? WHERE id = ?`, false, 102).Error)
	_, err = f.svc.Authenticate(context.Background(), result.Token)
	require.ErrorIs(t, err, authdomain.ErrInvalidToken)

	require.NoError(t, f.db.Exec(`DELETE FROM users WHERE id = ?`, 102).Error)
	_, err = f.svc.Authenticate(context.Background(), result.Token)
	require.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.db, 103, "dave", identity.RoleStaff, true)
	f.audit.On("Record", mock.Anything)

	result, err := f.svc.Login(context.Background(), authdomain.LoginRequest{Username: "dave", Password: "correct-password"})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.Authenticate(context.Background(), result.Token)
	require.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.db, 104, "erin", identity.RoleStaff, true)
	f.audit.On("Record", mock.Anything)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, 104, authdomain.ChangePasswordRequest{CurrentPassword: "correct-password", NewPassword: "short"})
	require.ErrorIs(t, err, authdomain.ErrWeakPassword)

	err = f.svc.ChangePassword(ctx, 104, authdomain.ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "brand-new-password"})
	require.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	err = f.svc.ChangePassword(ctx, 104, authdomain.ChangePasswordRequest{CurrentPassword: "correct-password", NewPassword: "brand-new-password"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, authdomain.LoginRequest{Username: "erin", Password: "brand-new-password"})
	require.NoError(t, err)
}
