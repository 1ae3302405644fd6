package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type License struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	Name         string        `gorm:"type:text;not null"`
	LicenseKey   string        `gorm:"column:license_key;type:text;not null"`
	Vendor       *string       `gorm:"type:text"`
	Seats        *int64        `gorm:"column:seats"`
	SeatsUsed    *int64        `gorm:"column:seats_used"`
	PurchaseDate *time.Time    `gorm:"column:purchase_date"`
	ExpiryDate   *time.Time    `gorm:"column:expiry_date;index"`
	Cost         *float64      `gorm:"column:cost"`
	AssignedTo   *string       `gorm:"column:assigned_to;type:text"`
	Notes        *string       `gorm:"type:text"`
	Active       bool          `gorm:"not null"`
	CreatedBy    *snowflake.ID `gorm:"column:created_by"`
	CreatedAt    time.Time     `gorm:"not null"`
	UpdatedAt    time.Time     `gorm:"not null"`
}

func (License) TableName() string { return "software_licenses" }

// Addon rows are owned by a license and replaced as a set on update.
type Addon struct {
	ID         string       `gorm:"primaryKey;type:text"`
	LicenseID  snowflake.ID `gorm:"column:license_id;not null;index"`
	Position   int          `gorm:"not null"`
	Name       string       `gorm:"type:text;not null"`
	LicenseKey *string      `gorm:"column:license_key;type:text"`
	Cost       *float64     `gorm:"column:cost"`
	ExpiryDate *time.Time   `gorm:"column:expiry_date"`
}

func (Addon) TableName() string { return "license_addons" }

type ListFilter struct {
	Search     string
	Active     *bool
	ExpiringBy *time.Time
}
