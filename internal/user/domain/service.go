// Package domain describes staff account administration. Accounts and their
// module grants are stored in the auth tables.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Email       *string  `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Active      *bool    `json:"active"`
	Permissions []string `json:"permissions"`
}

// UpdateUserRequest replaces the profile and grant set. A non-empty Password
// resets the account password.
type UpdateUserRequest struct {
	Name        string   `json:"name"`
	Email       *string  `json:"email"`
	Password    *string  `json:"password"`
	Role        string   `json:"role"`
	Active      *bool    `json:"active"`
	Permissions []string `json:"permissions"`
}

type UserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Email       *string   `json:"email"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *authdomain.User) error
	Update(ctx context.Context, db *gorm.DB, user *authdomain.User, passwordHash *string) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*authdomain.User, error)
	List(ctx context.Context, db *gorm.DB) ([]authdomain.User, error)
	ReplacePermissions(ctx context.Context, db *gorm.DB, userID snowflake.ID, rows []authdomain.UserPermission) error
	ListPermissions(ctx context.Context, db *gorm.DB, userIDs []snowflake.ID) (map[snowflake.ID][]string, error)
	UsernameTaken(ctx context.Context, db *gorm.DB, username string) (bool, error)
	HasTickets(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type Service interface {
	List(ctx context.Context) ([]UserResponse, error)
	Get(ctx context.Context, id string) (*UserResponse, error)
	Create(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidUsername   = errors.New("invalid_username")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidRole       = errors.New("invalid_role")
	ErrInvalidPermission = errors.New("invalid_permission")
	ErrSelfLockout       = errors.New("invalid_self_change")
	ErrUsernameTaken     = errors.New("username_taken")
	ErrUserInUse         = errors.New("user_in_use")
	ErrNotFound          = errors.New("not_found")
)
