package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

const (
	ObjectITCheck  = "it_check"
	ObjectLicense  = "license"
	ObjectPassword = "password_entry"
	ObjectTicket   = "ticket"
	ObjectCredit   = "credit"
	ObjectFeedback = "feedback"
	ObjectUser     = "user"
	ObjectAuditLog = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionReveal = "reveal"
	ActionImport = "import"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
)

type Service interface {
	// Authorize checks role against the allow-list for (object, action).
	Authorize(ctx context.Context, role string, object string, action string) error
}

var (
	allRoles   = []string{identity.RoleAdmin, identity.RoleStaff, identity.RoleViewer}
	adminStaff = []string{identity.RoleAdmin, identity.RoleStaff}
	adminOnly  = []string{identity.RoleAdmin}
)

// allowList is the declarative role gate for every route group.
var allowList = map[[2]string][]string{
	{ObjectITCheck, ActionView}:   allRoles,
	{ObjectITCheck, ActionCreate}: adminStaff,
	{ObjectITCheck, ActionUpdate}: adminStaff,
	{ObjectITCheck, ActionDelete}: adminStaff,

	{ObjectLicense, ActionView}:   allRoles,
	{ObjectLicense, ActionCreate}: adminStaff,
	{ObjectLicense, ActionUpdate}: adminStaff,
	{ObjectLicense, ActionDelete}: adminOnly,

	{ObjectPassword, ActionView}:   adminStaff,
	{ObjectPassword, ActionCreate}: adminStaff,
	{ObjectPassword, ActionUpdate}: adminStaff,
	{ObjectPassword, ActionDelete}: adminStaff,
	{ObjectPassword, ActionReveal}: adminStaff,

	{ObjectTicket, ActionView}:   allRoles,
	{ObjectTicket, ActionCreate}: allRoles,
	{ObjectTicket, ActionUpdate}: adminStaff,
	{ObjectTicket, ActionDelete}: adminOnly,

	{ObjectCredit, ActionView}:   allRoles,
	{ObjectCredit, ActionCreate}: adminStaff,
	{ObjectCredit, ActionUpdate}: adminStaff,
	{ObjectCredit, ActionDelete}: adminOnly,
	{ObjectCredit, ActionImport}: adminOnly,

	{ObjectFeedback, ActionView}:   adminStaff,
	{ObjectFeedback, ActionCreate}: adminStaff,
	{ObjectFeedback, ActionUpdate}: adminStaff,
	{ObjectFeedback, ActionDelete}: adminOnly,

	{ObjectUser, ActionView}:   adminOnly,
	{ObjectUser, ActionCreate}: adminOnly,
	{ObjectUser, ActionUpdate}: adminOnly,
	{ObjectUser, ActionDelete}: adminOnly,

	{ObjectAuditLog, ActionView}: adminOnly,
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies through the gorm adapter and reconciles them
// with the allow-list so stale grants from older releases are dropped.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := syncPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := syncPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = strings.TrimSpace(role)
	if !identity.ValidRole(role) {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return ErrInvalidObject
	}

	allowed, err := s.enforcer.Enforce(subject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("role denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subject(role string) string {
	return "role:" + role
}

func desiredPolicies() map[[3]string]struct{} {
	out := make(map[[3]string]struct{})
	for key, roles := range allowList {
		for _, role := range roles {
			out[[3]string{subject(role), key[0], key[1]}] = struct{}{}
		}
	}
	return out
}

func syncPolicies(enforcer *casbin.SyncedEnforcer) error {
	desired := desiredPolicies()

	existing, err := enforcer.GetPolicy()
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 3 {
			continue
		}
		if _, ok := desired[[3]string{rule[0], rule[1], rule[2]}]; ok {
			delete(desired, [3]string{rule[0], rule[1], rule[2]})
			continue
		}
		if _, err := enforcer.RemovePolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}

	for policy := range desired {
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
