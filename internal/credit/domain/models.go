package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Block is one purchase of consultancy credits. Consumption is not linked to
// a block; every block feeds one shared pool.
type Block struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	Reference    string        `gorm:"type:text;not null"`
	Credits      float64       `gorm:"not null"`
	PurchaseDate time.Time     `gorm:"column:purchase_date;not null"`
	Cost         *float64      `gorm:"column:cost"`
	Active       bool          `gorm:"not null"`
	Notes        *string       `gorm:"type:text"`
	CreatedBy    *snowflake.ID `gorm:"column:created_by"`
	CreatedAt    time.Time     `gorm:"not null"`
	UpdatedAt    time.Time     `gorm:"not null"`
}

func (Block) TableName() string { return "credit_blocks" }

type LogEntry struct {
	ID              snowflake.ID  `gorm:"primaryKey"`
	WorkDate        time.Time     `gorm:"column:work_date;not null;index"`
	Consultant      string        `gorm:"type:text;not null"`
	Description     string        `gorm:"type:text;not null"`
	CreditsConsumed float64       `gorm:"column:credits_consumed;not null"`
	TicketNumber    *string       `gorm:"column:ticket_number;type:text"`
	Notes           *string       `gorm:"type:text"`
	ImportBatch     *string       `gorm:"column:import_batch;type:varchar(26);index"`
	CreatedBy       *snowflake.ID `gorm:"column:created_by"`
	CreatedAt       time.Time     `gorm:"not null"`
	UpdatedAt       time.Time     `gorm:"not null"`
}

func (LogEntry) TableName() string { return "consultancy_log_entries" }

type EntryFilter struct {
	From       *time.Time
	To         *time.Time
	Consultant string
}

// Totals are raw aggregates across both tables.
type Totals struct {
	TotalPurchased  float64
	ActivePurchased float64
	TotalConsumed   float64
}
