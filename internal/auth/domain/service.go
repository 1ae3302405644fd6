package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
)

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (*identity.Identity, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, req ChangePasswordRequest) error
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      identity.Identity `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// MinPasswordLength applies to every password set through the API.
const MinPasswordLength = 8
