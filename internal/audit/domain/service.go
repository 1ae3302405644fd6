package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Entry describes one mutation. ActorID falls back to the request identity.
type Entry struct {
	ActorID    *snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	TargetName string
	Detail     string
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	Limit      int
	Action     string
	TargetType string
	TargetID   string
	ActorID    *snowflake.ID
	StartAt    *time.Time
	EndAt      *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLogView, error)
}

type Service interface {
	// RecordTx writes inside the caller's transaction; an error aborts it.
	RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) error
	// Record is best-effort for single-statement mutations.
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, req ListAuditLogRequest) ([]AuditLogView, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
