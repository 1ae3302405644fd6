package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type BlockFields struct {
	Reference    string   `json:"reference"`
	Credits      float64  `json:"credits"`
	PurchaseDate string   `json:"purchaseDate"`
	Cost         *float64 `json:"cost"`
	Active       *bool    `json:"active"`
	Notes        *string  `json:"notes"`
}

type CreateBlockRequest struct {
	BlockFields
}

type UpdateBlockRequest struct {
	BlockFields
}

type EntryFields struct {
	WorkDate        string   `json:"workDate"`
	Consultant      string   `json:"consultant"`
	Description     string   `json:"description"`
	CreditsConsumed *float64 `json:"creditsConsumed"`
	TicketNumber    *string  `json:"ticketNumber"`
	Notes           *string  `json:"notes"`
}

type CreateEntryRequest struct {
	EntryFields
}

type UpdateEntryRequest struct {
	EntryFields
}

type ListEntryRequest struct {
	From       *string
	To         *string
	Consultant string
}

type ImportEntriesRequest struct {
	Entries []EntryFields `json:"entries"`
}

type ImportFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// ImportResult reports a batch. Interrupted is set when the request context
// ended before every record was attempted; Imported still counts the
// records that were committed.
type ImportResult struct {
	BatchID     string          `json:"batchId"`
	Imported    int             `json:"imported"`
	Failed      []ImportFailure `json:"failed"`
	Interrupted bool            `json:"interrupted,omitempty"`
}

type BlockResponse struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	Credits      float64   `json:"credits"`
	PurchaseDate string    `json:"purchaseDate"`
	Cost         *float64  `json:"cost"`
	Active       bool      `json:"active"`
	Notes        *string   `json:"notes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type EntryResponse struct {
	ID              string    `json:"id"`
	WorkDate        string    `json:"workDate"`
	Consultant      string    `json:"consultant"`
	Description     string    `json:"description"`
	CreditsConsumed float64   `json:"creditsConsumed"`
	TicketNumber    *string   `json:"ticketNumber"`
	Notes           *string   `json:"notes"`
	ImportBatch     *string   `json:"importBatch,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Summary derives remaining credit by subtracting all consumption from all
// purchases. Writes are never refused because of it.
type Summary struct {
	TotalPurchased  float64 `json:"totalPurchased"`
	ActivePurchased float64 `json:"activePurchased"`
	TotalConsumed   float64 `json:"totalConsumed"`
	Remaining       float64 `json:"remaining"`
	Overdrawn       bool    `json:"overdrawn"`
	LowBalance      bool    `json:"lowBalance"`
}

type Repository interface {
	InsertBlock(ctx context.Context, db *gorm.DB, block *Block) error
	UpdateBlock(ctx context.Context, db *gorm.DB, block *Block) (bool, error)
	DeleteBlock(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindBlock(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Block, error)
	ListBlocks(ctx context.Context, db *gorm.DB) ([]Block, error)

	InsertEntry(ctx context.Context, db *gorm.DB, entry *LogEntry) error
	UpdateEntry(ctx context.Context, db *gorm.DB, entry *LogEntry) (bool, error)
	DeleteEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LogEntry, error)
	ListEntries(ctx context.Context, db *gorm.DB, filter EntryFilter) ([]LogEntry, error)

	Totals(ctx context.Context, db *gorm.DB) (Totals, error)
}

type Service interface {
	ListBlocks(ctx context.Context) ([]BlockResponse, error)
	GetBlock(ctx context.Context, id string) (*BlockResponse, error)
	CreateBlock(ctx context.Context, req CreateBlockRequest) (*BlockResponse, error)
	UpdateBlock(ctx context.Context, id string, req UpdateBlockRequest) (*BlockResponse, error)
	DeleteBlock(ctx context.Context, id string) error

	ListEntries(ctx context.Context, req ListEntryRequest) ([]EntryResponse, error)
	GetEntry(ctx context.Context, id string) (*EntryResponse, error)
	CreateEntry(ctx context.Context, req CreateEntryRequest) (*EntryResponse, error)
	UpdateEntry(ctx context.Context, id string, req UpdateEntryRequest) (*EntryResponse, error)
	DeleteEntry(ctx context.Context, id string) error
	ImportEntries(ctx context.Context, req ImportEntriesRequest) (*ImportResult, error)

	Summary(ctx context.Context) (*Summary, error)
	Statement(ctx context.Context) ([]byte, error)
}

// MaxImportEntries bounds one import request.
const MaxImportEntries = 5000

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidReference       = errors.New("invalid_reference")
	ErrInvalidCredits         = errors.New("invalid_credits")
	ErrInvalidPurchaseDate    = errors.New("invalid_purchase_date")
	ErrInvalidCost            = errors.New("invalid_cost")
	ErrInvalidWorkDate        = errors.New("invalid_work_date")
	ErrInvalidConsultant      = errors.New("invalid_consultant")
	ErrInvalidDescription     = errors.New("invalid_description")
	ErrInvalidCreditsConsumed = errors.New("invalid_credits_consumed")
	ErrInvalidDateRange       = errors.New("invalid_date_range")
	ErrInvalidImport          = errors.New("invalid_entries")
	ErrNotFound               = errors.New("not_found")
)
