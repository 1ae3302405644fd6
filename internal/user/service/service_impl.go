package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/password"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/user/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const userTarget = "user"

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)

type Params struct {
	fx.In

	DB       *gorm.DB
	DBConfig db.Config `optional:"true"`
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	txTimeout time.Duration
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	auditSvc  auditdomain.Service
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		txTimeout: p.DBConfig.StatementTimeout,
		log:       p.Log.Named("user.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.UserResponse, error) {
	rows, err := s.repo.List(ctx, s.db)
	if err != nil {
		s.log.Error("failed to list users", zap.Error(err))
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	perms, err := s.repo.ListPermissions(ctx, s.db, ids)
	if err != nil {
		s.log.Error("failed to load user permissions", zap.Error(err))
		return nil, err
	}

	out := make([]domain.UserResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i], perms[rows[i].ID]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.UserResponse, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, userID)
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.UserResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if !usernamePattern.MatchString(username) {
		return nil, domain.ErrInvalidUsername
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	user, perms, err := validateProfile(req.Name, req.Email, req.Role, active, req.Permissions)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < authdomain.MinPasswordLength {
		return nil, authdomain.ErrWeakPassword
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	user.ID = s.genID.Generate()
	user.Username = username
	user.PasswordHash = hash
	user.CreatedAt = now
	user.UpdatedAt = now

	var resp *domain.UserResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		taken, err := s.repo.UsernameTaken(ctx, tx, username)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrUsernameTaken
		}
		if err := s.repo.Insert(ctx, tx, user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrUsernameTaken
			}
			return err
		}
		if err := s.repo.ReplacePermissions(ctx, tx, user.ID, permissionRows(user.ID, perms)); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAddEntry,
			TargetType: userTarget,
			TargetID:   user.ID.String(),
			TargetName: username,
			Metadata:   map[string]any{"role": user.Role, "permissions": perms},
		}); err != nil {
			return err
		}
		resp, err = s.load(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUsernameTaken) {
			s.log.Error("failed to create user", zap.String("username", username), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, userTarget, auditdomain.ActionAddEntry)
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateUserRequest) (*domain.UserResponse, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	user, perms, err := validateProfile(req.Name, req.Email, req.Role, active, req.Permissions)
	if err != nil {
		return nil, err
	}
	if caller, ok := identity.FromContext(ctx); ok && caller.ID == userID {
		if user.Role != caller.Role || !user.Active {
			return nil, domain.ErrSelfLockout
		}
	}

	var hash *string
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < authdomain.MinPasswordLength {
			return nil, authdomain.ErrWeakPassword
		}
		h, err := password.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}

	user.ID = userID
	user.UpdatedAt = s.clock.Now().UTC()

	var resp *domain.UserResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		ok, err := s.repo.Update(ctx, tx, user, hash)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if err := s.repo.ReplacePermissions(ctx, tx, userID, permissionRows(userID, perms)); err != nil {
			return err
		}
		resp, err = s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdateEntry,
			TargetType: userTarget,
			TargetID:   userID.String(),
			TargetName: resp.Username,
			Metadata: map[string]any{
				"role":             user.Role,
				"active":           user.Active,
				"permissions":      perms,
				"password_changed": hash != nil,
			},
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to update user", zap.String("user_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, userTarget, auditdomain.ActionUpdateEntry)
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	userID, err := parseID(id)
	if err != nil {
		return err
	}
	if caller, ok := identity.FromContext(ctx); ok && caller.ID == userID {
		return domain.ErrSelfLockout
	}

	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		inUse, err := s.repo.HasTickets(ctx, tx, userID)
		if err != nil {
			return err
		}
		if inUse {
			return domain.ErrUserInUse
		}
		if _, err := s.repo.Delete(ctx, tx, userID); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionDeleteEntry,
			TargetType: userTarget,
			TargetID:   userID.String(),
			TargetName: existing.Username,
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrUserInUse) {
			s.log.Error("failed to delete user", zap.String("user_id", id), zap.Error(err))
		}
		return err
	}
	s.metrics.RecordEntityWrite(ctx, userTarget, auditdomain.ActionDeleteEntry)
	return nil
}

func (s *Service) load(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	perms, err := s.repo.ListPermissions(ctx, conn, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	resp := toResponse(user, perms[id])
	return &resp, nil
}

func validateProfile(name string, email *string, role string, active bool, permissions []string) (*authdomain.User, []string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, domain.ErrInvalidName
	}
	if email != nil {
		trimmed := strings.TrimSpace(*email)
		if trimmed != "" && !strings.Contains(trimmed, "@") {
			return nil, nil, domain.ErrInvalidEmail
		}
	}
	role = strings.TrimSpace(role)
	if !identity.ValidRole(role) {
		return nil, nil, domain.ErrInvalidRole
	}

	perms := make([]string, 0, len(permissions))
	seen := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		p = strings.TrimSpace(p)
		if !identity.ValidPermission(p) {
			return nil, nil, domain.ErrInvalidPermission
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}

	return &authdomain.User{
		Name:   name,
		Email:  email,
		Role:   role,
		Active: active,
	}, perms, nil
}

func permissionRows(userID snowflake.ID, perms []string) []authdomain.UserPermission {
	rows := make([]authdomain.UserPermission, 0, len(perms))
	for i, p := range perms {
		rows = append(rows, authdomain.UserPermission{
			ID:         db.ChildID(userID, i),
			UserID:     userID,
			Permission: p,
			Position:   i,
		})
	}
	return rows
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func toResponse(u *authdomain.User, perms []string) domain.UserResponse {
	if perms == nil {
		perms = []string{}
	}
	return domain.UserResponse{
		ID:          u.ID.String(),
		Username:    u.Username,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Active:      u.Active,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
