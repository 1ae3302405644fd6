// Package identity carries the authenticated caller through request contexts.
package identity

import (
	"context"
	"slices"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleViewer = "viewer"
)

// Module permission keys granted per user.
const (
	PermissionITCheck   = "itcheck"
	PermissionLicenses  = "licenses"
	PermissionCredits   = "credits"
	PermissionPasswords = "passwords"
	PermissionTickets   = "tickets"
	PermissionFeedback  = "feedback"
)

var (
	Roles       = []string{RoleAdmin, RoleStaff, RoleViewer}
	Permissions = []string{
		PermissionITCheck,
		PermissionLicenses,
		PermissionCredits,
		PermissionPasswords,
		PermissionTickets,
		PermissionFeedback,
	}
)

// Identity is resolved from the store on every request.
type Identity struct {
	ID          snowflake.ID `json:"id"`
	Username    string       `json:"username"`
	Name        string       `json:"name"`
	Role        string       `json:"role"`
	Permissions []string     `json:"permissions"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) HasRole(roles ...string) bool {
	return slices.Contains(roles, i.Role)
}

// HasPermission reports whether the caller may use a module. Admins hold every
// permission implicitly.
func (i Identity) HasPermission(permission string) bool {
	if i.IsAdmin() {
		return true
	}
	return slices.Contains(i.Permissions, permission)
}

func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

func ValidPermission(permission string) bool {
	return slices.Contains(Permissions, permission)
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || id.ID == 0 {
		return Identity{}, false
	}
	return id, true
}

// ActorID returns the caller id for audit attribution, or nil for anonymous calls.
func ActorID(ctx context.Context) *snowflake.ID {
	id, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	actor := id.ID
	return &actor
}
