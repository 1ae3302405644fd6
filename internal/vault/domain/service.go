package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CustomFieldInput mirrors CustomFieldResponse. On update a secret field sent
// without a value, or with MaskedValue, keeps the stored secret of the field
// with the same ID (or, without an ID, the same position).
type CustomFieldInput struct {
	ID     string  `json:"id,omitempty"`
	Label  string  `json:"label"`
	Value  *string `json:"value"`
	Secret bool    `json:"secret"`
}

type EntryFields struct {
	Title        string             `json:"title"`
	Username     *string            `json:"username"`
	URL          *string            `json:"url"`
	Category     *string            `json:"category"`
	Notes        *string            `json:"notes"`
	CustomFields []CustomFieldInput `json:"customFields"`
}

type CreateEntryRequest struct {
	EntryFields
	Password string `json:"password"`
}

// UpdateEntryRequest keeps the sealed password when Password is omitted or
// equals MaskedValue.
type UpdateEntryRequest struct {
	EntryFields
	Password *string `json:"password"`
}

type ListEntryRequest struct {
	Category string
	Search   string
}

type CustomFieldResponse struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Value  *string `json:"value"`
	Secret bool    `json:"secret"`
}

type EntryResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Username     *string               `json:"username"`
	Password     string                `json:"password"`
	URL          *string               `json:"url"`
	Category     *string               `json:"category"`
	Notes        *string               `json:"notes"`
	Strength     string                `json:"strength"`
	CustomFields []CustomFieldResponse `json:"customFields"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

type RevealResponse struct {
	ID           string                `json:"id"`
	Password     string                `json:"password"`
	CustomFields []CustomFieldResponse `json:"customFields"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	Update(ctx context.Context, db *gorm.DB, entry *Entry, keepPassword bool) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Entry, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Entry, error)
	ReplaceCustomFields(ctx context.Context, db *gorm.DB, entryID snowflake.ID, rows []CustomField) error
	ListCustomFields(ctx context.Context, db *gorm.DB, entryIDs []snowflake.ID) (map[snowflake.ID][]CustomField, error)
}

type Service interface {
	List(ctx context.Context, req ListEntryRequest) ([]EntryResponse, error)
	Get(ctx context.Context, id string) (*EntryResponse, error)
	Create(ctx context.Context, req CreateEntryRequest) (*EntryResponse, error)
	Update(ctx context.Context, id string, req UpdateEntryRequest) (*EntryResponse, error)
	Delete(ctx context.Context, id string) error
	Reveal(ctx context.Context, id string) (*RevealResponse, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidTitle       = errors.New("invalid_title")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidCustomField = errors.New("invalid_custom_field")
	ErrNotFound           = errors.New("not_found")
)
