package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/password"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/token"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Tokens   *token.Issuer
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	tokens   *token.Issuer
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		repo:     p.Repo,
		tokens:   p.Tokens,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active || !password.Verify(req.Password, user.PasswordHash) {
		s.audit(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionLoginFailed,
			TargetType: "user",
			TargetName: username,
			Detail:     "login failed for " + username,
		})
		return nil, domain.ErrInvalidCredentials
	}

	raw, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	id, err := s.identityFor(ctx, user)
	if err != nil {
		return nil, err
	}

	actor := user.ID
	s.audit(ctx, auditdomain.Entry{
		ActorID:    &actor,
		Action:     auditdomain.ActionLogin,
		TargetType: "user",
		TargetID:   user.ID.String(),
		TargetName: user.Username,
	})

	return &domain.LoginResult{Token: raw, ExpiresAt: expiresAt, User: *id}, nil
}

// Authenticate resolves a bearer credential to the caller's current role and
// permissions. Role changes and deactivation apply without reissuing tokens.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*identity.Identity, error) {
	userID, err := s.tokens.Verify(rawToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, domain.ErrInvalidToken
	}

	return s.identityFor(ctx, user)
}

func (s *Service) ChangePassword(ctx context.Context, userID snowflake.ID, req domain.ChangePasswordRequest) error {
	if len(req.NewPassword) < domain.MinPasswordLength {
		return domain.ErrWeakPassword
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if !password.Verify(req.CurrentPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, s.db, user.ID, hashed); err != nil {
		return err
	}

	s.audit(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionChangePassword,
		TargetType: "user",
		TargetID:   user.ID.String(),
		TargetName: user.Username,
	})
	return nil
}

func (s *Service) identityFor(ctx context.Context, user *domain.User) (*identity.Identity, error) {
	perms, err := s.repo.ListPermissions(ctx, s.db, []snowflake.ID{user.ID})
	if err != nil {
		return nil, err
	}
	granted := perms[user.ID]
	if granted == nil {
		granted = []string{}
	}
	return &identity.Identity{
		ID:          user.ID,
		Username:    user.Username,
		Name:        user.Name,
		Role:        user.Role,
		Permissions: granted,
	}, nil
}

func (s *Service) audit(ctx context.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.Record(ctx, entry)
}
