package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/password"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ratelimit"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	bootstrapLockKey = "bootstrap-admin"
	bootstrapLockTTL = 30 * time.Second
)

type Params struct {
	DB        *gorm.DB
	Bootstrap config.BootstrapConfig
	GenID     *snowflake.Node
	Clock     clock.Clock
	Locker    *ratelimit.Locker
	Log       *zap.Logger
}

// EnsureBootstrapAdmin creates the first admin account when the users table
// is empty. With redis configured only one replica seeds at a time.
func EnsureBootstrapAdmin(ctx context.Context, p Params) error {
	if p.DB == nil {
		return errors.New("seed database handle is required")
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	username := strings.ToLower(strings.TrimSpace(p.Bootstrap.AdminUsername))
	if username == "" || p.Bootstrap.AdminPassword == "" {
		log.Warn("bootstrap admin credentials not configured, skipping seed")
		return nil
	}
	if len(p.Bootstrap.AdminPassword) < authdomain.MinPasswordLength {
		return authdomain.ErrWeakPassword
	}

	if p.Locker != nil {
		token, ok, err := p.Locker.TryLock(ctx, bootstrapLockKey, bootstrapLockTTL)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("another instance is seeding, skipping")
			return nil
		}
		defer func() {
			if err := p.Locker.Release(context.WithoutCancel(ctx), bootstrapLockKey, token); err != nil {
				log.Warn("failed to release bootstrap lock", zap.Error(err))
			}
		}()
	}

	hashed, err := password.Hash(p.Bootstrap.AdminPassword)
	if err != nil {
		return err
	}

	created := false
	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&authdomain.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := p.Clock.Now().UTC()
		user := authdomain.User{
			ID:           p.GenID.Generate(),
			Username:     username,
			Name:         strings.TrimSpace(p.Bootstrap.AdminName),
			PasswordHash: hashed,
			Role:         identity.RoleAdmin,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if user.Name == "" {
			user.Name = "Administrator"
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return err
	}
	if created {
		log.Info("bootstrap admin created", zap.String("username", username))
	}
	return nil
}
