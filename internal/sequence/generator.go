// Package sequence hands out per-day counters for human-readable numbers.
package sequence

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("sequence",
	fx.Provide(New),
)

// ErrSequenceConflict is returned when a generated number collides with an
// existing row. Callers retry the whole operation.
var ErrSequenceConflict = errors.New("could not generate a unique number, please retry")

// TicketSequence holds one counter row per calendar day.
type TicketSequence struct {
	Day   string `gorm:"primaryKey;type:varchar(8)"`
	Value int64  `gorm:"not null"`
}

func (TicketSequence) TableName() string { return "ticket_sequences" }

type Generator interface {
	// Next increments the day's counter and returns the new value. It must
	// run on the transaction that also writes the numbered row.
	Next(ctx context.Context, tx *gorm.DB, day time.Time) (int64, error)
}

type generator struct{}

func New() Generator {
	return &generator{}
}

const (
	upsertStandard = `INSERT INTO ticket_sequences (day, value) VALUES (?, 1)
		ON CONFLICT (day) DO UPDATE SET value = ticket_sequences.value + 1`
	upsertMySQL = `INSERT INTO ticket_sequences (day, value) VALUES (?, 1)
		ON DUPLICATE KEY UPDATE value = value + 1`
)

func (g *generator) Next(ctx context.Context, tx *gorm.DB, day time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("sequence requires a transaction")
	}
	key := DayKey(day)

	stmt := upsertStandard
	if tx.Dialector != nil && tx.Dialector.Name() == "mysql" {
		stmt = upsertMySQL
	}
	if err := tx.WithContext(ctx).Exec(stmt, key).Error; err != nil {
		return 0, err
	}

	var value int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT value FROM ticket_sequences WHERE day = ?`,
		key,
	).Scan(&value).Error; err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, errors.New("sequence row missing after upsert")
	}
	return value, nil
}
