package authorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeFollowsAllowList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, identity.RoleViewer, ObjectLicense, ActionView))
	assert.ErrorIs(t, svc.Authorize(ctx, identity.RoleViewer, ObjectLicense, ActionCreate), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, identity.RoleStaff, ObjectLicense, ActionCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, identity.RoleStaff, ObjectAuditLog, ActionView), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, identity.RoleAdmin, ObjectAuditLog, ActionView))
}

func TestAuthorizeRejectsUnknownRole(t *testing.T) {
	svc := newTestService(t)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "root", ObjectLicense, ActionView), ErrInvalidRole)
}

func TestEveryAllowListEntryIsEnforced(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for key, roles := range allowList {
		for _, role := range identity.Roles {
			err := svc.Authorize(ctx, role, key[0], key[1])
			allowed := false
			for _, r := range roles {
				if r == role {
					allowed = true
				}
			}
			if allowed && err != nil {
				t.Fatalf("%s should be allowed %s:%s, got %v", role, key[0], key[1], err)
			}
			if !allowed && err == nil {
				t.Fatalf("%s should be denied %s:%s", role, key[0], key[1])
			}
		}
	}
}

func TestSyncPoliciesDropsStaleRules(t *testing.T) {
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)

	_, err = enforcer.AddPolicy("role:viewer", ObjectUser, ActionDelete)
	require.NoError(t, err)
	require.NoError(t, syncPolicies(enforcer))

	allowed, err := enforcer.Enforce("role:viewer", ObjectUser, ActionDelete)
	require.NoError(t, err)
	assert.False(t, allowed)
}
