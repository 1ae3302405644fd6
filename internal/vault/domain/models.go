package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StrengthWeak   = "weak"
	StrengthFair   = "fair"
	StrengthStrong = "strong"
)

// MaskedValue replaces every sealed value in list and detail responses.
const MaskedValue = "********"

// Entry stores the password sealed; plaintext only leaves through Reveal.
type Entry struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	Title          string        `gorm:"type:text;not null"`
	Username       *string       `gorm:"type:text"`
	PasswordCipher string        `gorm:"column:password_cipher;type:text;not null"`
	URL            *string       `gorm:"column:url;type:text"`
	Category       *string       `gorm:"type:text;index"`
	Notes          *string       `gorm:"type:text"`
	Strength       string        `gorm:"type:text;not null"`
	CreatedBy      *snowflake.ID `gorm:"column:created_by"`
	CreatedAt      time.Time     `gorm:"not null"`
	UpdatedAt      time.Time     `gorm:"not null"`
}

func (Entry) TableName() string { return "password_entries" }

// CustomField.Value holds ciphertext when Secret is set.
type CustomField struct {
	ID       string       `gorm:"primaryKey;type:text"`
	EntryID  snowflake.ID `gorm:"column:entry_id;not null;index"`
	Position int          `gorm:"not null"`
	Label    string       `gorm:"type:text;not null"`
	Value    *string      `gorm:"type:text"`
	Secret   bool         `gorm:"not null"`
}

func (CustomField) TableName() string { return "password_custom_fields" }

type ListFilter struct {
	Category string
	Search   string
}
