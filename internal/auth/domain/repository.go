package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	ListPermissions(ctx context.Context, db *gorm.DB, userIDs []snowflake.ID) (map[snowflake.ID][]string, error)
	UpdatePasswordHash(ctx context.Context, db *gorm.DB, id snowflake.ID, hash string) error
}
