package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/password"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

func newParams(t *testing.T, bootstrap config.BootstrapConfig) (Params, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return Params{
		DB:        conn,
		Bootstrap: bootstrap,
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, conn
}

func TestEnsureBootstrapAdminSeedsOnce(t *testing.T) {
	p, conn := newParams(t, config.BootstrapConfig{AdminUsername: "Admin", AdminPassword: "change-me-now", AdminName: "IT Admin"})
	ctx := context.Background()

	require.NoError(t, EnsureBootstrapAdmin(ctx, p))
	require.NoError(t, EnsureBootstrapAdmin(ctx, p))

	var users []authdomain.User
	require.NoError(t, conn.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, identity.RoleAdmin, users[0].Role)
	assert.True(t, users[0].Active)
	assert.True(t, password.Verify("change-me-now", users[0].PasswordHash))
}

func TestEnsureBootstrapAdminSkipsWithoutPassword(t *testing.T) {
	p, conn := newParams(t, config.BootstrapConfig{AdminUsername: "admin"})

	require.NoError(t, EnsureBootstrapAdmin(context.Background(), p))

	var count int64
	require.NoError(t, conn.Model(&authdomain.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEnsureBootstrapAdminRejectsWeakPassword(t *testing.T) {
	p, _ := newParams(t, config.BootstrapConfig{AdminUsername: "admin", AdminPassword: "short"})

	assert.ErrorIs(t, EnsureBootstrapAdmin(context.Background(), p), authdomain.ErrWeakPassword)
}
