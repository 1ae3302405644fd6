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
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/password"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	ticketdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/user/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/user/repository"
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
		&authdomain.UserPermission{},
		&auditdomain.AuditLog{},
		&ticketdomain.Ticket{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC))

	audit := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		AuditSvc: audit,
	})
	return svc, conn
}

func strPtr(v string) *string { return &v }

func TestCreateUserStoresHashAndPermissions(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateUserRequest{
		Username:    " Jo.Tech ",
		Name:        "Jo",
		Password:    "correct horse",
		Role:        identity.RoleStaff,
		Permissions: []string{identity.PermissionTickets, identity.PermissionLicenses, identity.PermissionTickets},
	})
	require.NoError(t, err)
	assert.Equal(t, "jo.tech", created.Username)
	assert.True(t, created.Active)
	assert.Equal(t, []string{identity.PermissionTickets, identity.PermissionLicenses}, created.Permissions)

	var hash string
	require.NoError(t, conn.Table("users").Where("username = ?", "jo.tech").Pluck("password_hash", &hash).Error)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, password.Verify("correct horse", hash))

	var ids []string
	require.NoError(t, conn.Table("user_permissions").Order("position").Pluck("id", &ids).Error)
	assert.Equal(t, []string{created.ID + "-0", created.ID + "-1"}, ids)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Username: "jo.tech", Name: "Other", Password: "long enough", Role: identity.RoleViewer})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestCreateUserValidation(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	base := domain.CreateUserRequest{Username: "sam", Name: "Sam", Password: "long enough", Role: identity.RoleViewer}
	cases := []struct {
		name   string
		mutate func(r *domain.CreateUserRequest)
		want   error
	}{
		{"short username", func(r *domain.CreateUserRequest) { r.Username = "s" }, domain.ErrInvalidUsername},
		{"blank name", func(r *domain.CreateUserRequest) { r.Name = " " }, domain.ErrInvalidName},
		{"bad email", func(r *domain.CreateUserRequest) { r.Email = strPtr("sam.example.com") }, domain.ErrInvalidEmail},
		{"unknown role", func(r *domain.CreateUserRequest) { r.Role = "root" }, domain.ErrInvalidRole},
		{"unknown permission", func(r *domain.CreateUserRequest) { r.Permissions = []string{"payroll"} }, domain.ErrInvalidPermission},
		{"weak password", func(r *domain.CreateUserRequest) { r.Password = "short" }, authdomain.ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var n int64
	require.NoError(t, conn.Table("users").Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateReplacesPermissionsAndKeepsPassword(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateUserRequest{
		Username: "lee", Name: "Lee", Password: "first password", Role: identity.RoleStaff,
		Permissions: []string{identity.PermissionCredits},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.UpdateUserRequest{
		Name: "Lee Park", Role: identity.RoleViewer,
		Permissions: []string{identity.PermissionFeedback, identity.PermissionTickets},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lee Park", updated.Name)
	assert.Equal(t, []string{identity.PermissionFeedback, identity.PermissionTickets}, updated.Permissions)

	var hash string
	require.NoError(t, conn.Table("users").Where("username = ?", "lee").Pluck("password_hash", &hash).Error)
	assert.True(t, password.Verify("first password", hash))

	_, err = svc.Update(ctx, created.ID, domain.UpdateUserRequest{
		Name: "Lee Park", Role: identity.RoleViewer, Password: strPtr("second password"),
	})
	require.NoError(t, err)
	require.NoError(t, conn.Table("users").Where("username = ?", "lee").Pluck("password_hash", &hash).Error)
	assert.True(t, password.Verify("second password", hash))
}

func TestCallerCannotLockThemselvesOut(t *testing.T) {
	svc, _ := newTestService(t)

	admin, err := svc.Create(context.Background(), domain.CreateUserRequest{
		Username: "admin", Name: "Admin", Password: "admin password", Role: identity.RoleAdmin,
	})
	require.NoError(t, err)

	adminID, err := snowflake.ParseString(admin.ID)
	require.NoError(t, err)
	ctx := identity.WithIdentity(context.Background(), identity.Identity{ID: adminID, Role: identity.RoleAdmin})

	_, err = svc.Update(ctx, admin.ID, domain.UpdateUserRequest{Name: "Admin", Role: identity.RoleViewer})
	assert.ErrorIs(t, err, domain.ErrSelfLockout)
	assert.ErrorIs(t, svc.Delete(ctx, admin.ID), domain.ErrSelfLockout)
}

func TestDeleteUser(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateUserRequest{
		Username: "temp", Name: "Temp", Password: "temp password", Role: identity.RoleViewer,
		Permissions: []string{identity.PermissionTickets},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	var n int64
	require.NoError(t, conn.Table("user_permissions").Count(&n).Error)
	assert.Zero(t, n)
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteUserWithTicketsIsRefused(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateUserRequest{
		Username: "req", Name: "Requester", Password: "req password", Role: identity.RoleViewer,
	})
	require.NoError(t, err)
	id, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)

	require.NoError(t, conn.Create(&ticketdomain.Ticket{
		ID: 99, TicketNumber: "TICKET-20260202-001", Title: "Printer", Priority: "medium", Status: "open",
		RequesterID: id, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}).Error)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), domain.ErrUserInUse)
}
