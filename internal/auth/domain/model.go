// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User represents a staff account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Username     string       `gorm:"type:text;not null;uniqueIndex"`
	Name         string       `gorm:"type:text;not null"`
	Email        *string      `gorm:"type:text"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null"`
	Role         string       `gorm:"type:text;not null"`
	Active       bool         `gorm:"not null"`
	CreatedAt    time.Time    `gorm:"not null"`
	UpdatedAt    time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// UserPermission is one module grant; rows are owned by the user.
type UserPermission struct {
	ID         string       `gorm:"primaryKey;type:text"`
	UserID     snowflake.ID `gorm:"column:user_id;not null;index"`
	Permission string       `gorm:"type:text;not null"`
	Position   int          `gorm:"not null"`
}

// TableName sets the database table name.
func (UserPermission) TableName() string { return "user_permissions" }
