package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermissionAdminBypass(t *testing.T) {
	admin := Identity{ID: 1, Role: RoleAdmin}
	staff := Identity{ID: 2, Role: RoleStaff, Permissions: []string{PermissionTickets}}

	assert.True(t, admin.HasPermission(PermissionPasswords))
	assert.True(t, staff.HasPermission(PermissionTickets))
	assert.False(t, staff.HasPermission(PermissionPasswords))
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{ID: 7, Role: RoleViewer})
	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, RoleViewer, got.Role)

	actor := ActorID(ctx)
	if assert.NotNil(t, actor) {
		assert.EqualValues(t, 7, *actor)
	}
	assert.Nil(t, ActorID(context.Background()))
}
