package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type AddonInput struct {
	Name       string   `json:"name"`
	LicenseKey *string  `json:"licenseKey"`
	Cost       *float64 `json:"cost"`
	ExpiryDate *string  `json:"expiryDate"`
}

// LicenseFields is the writable shape shared by create and update payloads.
type LicenseFields struct {
	Name         string       `json:"name"`
	LicenseKey   string       `json:"licenseKey"`
	Vendor       *string      `json:"vendor"`
	Seats        *int64       `json:"seats"`
	SeatsUsed    *int64       `json:"seatsUsed"`
	PurchaseDate *string      `json:"purchaseDate"`
	ExpiryDate   *string      `json:"expiryDate"`
	Cost         *float64     `json:"cost"`
	AssignedTo   *string      `json:"assignedTo"`
	Notes        *string      `json:"notes"`
	Active       *bool        `json:"active"`
	Addons       []AddonInput `json:"addons"`
}

type CreateLicenseRequest struct {
	LicenseFields
}

type UpdateLicenseRequest struct {
	LicenseFields
}

type ListLicenseRequest struct {
	Search             string
	Active             *bool
	ExpiringWithinDays *int
}

type AddonResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	LicenseKey *string  `json:"licenseKey"`
	Cost       *float64 `json:"cost"`
	ExpiryDate *string  `json:"expiryDate"`
}

type LicenseResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	LicenseKey   string          `json:"licenseKey"`
	Vendor       *string         `json:"vendor"`
	Seats        *int64          `json:"seats"`
	SeatsUsed    *int64          `json:"seatsUsed"`
	PurchaseDate *string         `json:"purchaseDate"`
	ExpiryDate   *string         `json:"expiryDate"`
	Cost         *float64        `json:"cost"`
	AssignedTo   *string         `json:"assignedTo"`
	Notes        *string         `json:"notes"`
	Active       bool            `json:"active"`
	Expired      bool            `json:"expired"`
	DaysToExpiry *int            `json:"daysToExpiry"`
	Addons       []AddonResponse `json:"addons"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, license *License) error
	Update(ctx context.Context, db *gorm.DB, license *License) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	ReplaceAddons(ctx context.Context, db *gorm.DB, licenseID snowflake.ID, addons []Addon) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*License, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]License, error)
	ListAddons(ctx context.Context, db *gorm.DB, licenseIDs []snowflake.ID) (map[snowflake.ID][]Addon, error)
}

type Service interface {
	List(ctx context.Context, req ListLicenseRequest) ([]LicenseResponse, error)
	Get(ctx context.Context, id string) (*LicenseResponse, error)
	Create(ctx context.Context, req CreateLicenseRequest) (*LicenseResponse, error)
	Update(ctx context.Context, id string, req UpdateLicenseRequest) (*LicenseResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidLicenseKey   = errors.New("invalid_license_key")
	ErrInvalidSeats        = errors.New("invalid_seats")
	ErrInvalidPurchaseDate = errors.New("invalid_purchase_date")
	ErrInvalidExpiryDate   = errors.New("invalid_expiry_date")
	ErrInvalidCost         = errors.New("invalid_cost")
	ErrInvalidAddon        = errors.New("invalid_addon")
	ErrInvalidFilter       = errors.New("invalid_filter")
	ErrNotFound            = errors.New("not_found")
)
