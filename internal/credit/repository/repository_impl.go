package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const (
	blockColumns = `id, reference, credits, purchase_date, cost, active, notes, created_by, created_at, updated_at`
	entryColumns = `id, work_date, consultant, description, credits_consumed, ticket_number, notes,
		import_batch, created_by, created_at, updated_at`
)

func (r *repo) InsertBlock(ctx context.Context, conn *gorm.DB, b *domain.Block) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO credit_blocks (`+blockColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.Reference,
		b.Credits,
		b.PurchaseDate.UTC(),
		db.NullFloat(b.Cost),
		b.Active,
		db.NullRawString(b.Notes),
		b.CreatedBy,
		b.CreatedAt,
		b.UpdatedAt,
	).Error
}

func (r *repo) UpdateBlock(ctx context.Context, conn *gorm.DB, b *domain.Block) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE credit_blocks
		 SET reference = ?, credits = ?, purchase_date = ?, cost = ?, active = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		b.Reference,
		b.Credits,
		b.PurchaseDate.UTC(),
		db.NullFloat(b.Cost),
		b.Active,
		db.NullRawString(b.Notes),
		b.UpdatedAt,
		b.ID,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) DeleteBlock(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	res := conn.WithContext(ctx).Exec(`DELETE FROM credit_blocks WHERE id = ?`, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindBlock(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Block, error) {
	var row domain.Block
	err := conn.WithContext(ctx).Raw(`SELECT `+blockColumns+` FROM credit_blocks WHERE id = ?`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListBlocks(ctx context.Context, conn *gorm.DB) ([]domain.Block, error) {
	var rows []domain.Block
	err := conn.WithContext(ctx).Raw(
		`SELECT ` + blockColumns + ` FROM credit_blocks ORDER BY purchase_date DESC, id DESC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertEntry(ctx context.Context, conn *gorm.DB, e *domain.LogEntry) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO consultancy_log_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.WorkDate.UTC(),
		e.Consultant,
		e.Description,
		e.CreditsConsumed,
		db.NullString(e.TicketNumber),
		db.NullRawString(e.Notes),
		db.NullString(e.ImportBatch),
		e.CreatedBy,
		e.CreatedAt,
		e.UpdatedAt,
	).Error
}

func (r *repo) UpdateEntry(ctx context.Context, conn *gorm.DB, e *domain.LogEntry) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE consultancy_log_entries
		 SET work_date = ?, consultant = ?, description = ?, credits_consumed = ?, ticket_number = ?,
		     notes = ?, updated_at = ?
		 WHERE id = ?`,
		e.WorkDate.UTC(),
		e.Consultant,
		e.Description,
		e.CreditsConsumed,
		db.NullString(e.TicketNumber),
		db.NullRawString(e.Notes),
		e.UpdatedAt,
		e.ID,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) DeleteEntry(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	res := conn.WithContext(ctx).Exec(`DELETE FROM consultancy_log_entries WHERE id = ?`, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindEntry(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.LogEntry, error) {
	var row domain.LogEntry
	err := conn.WithContext(ctx).Raw(`SELECT `+entryColumns+` FROM consultancy_log_entries WHERE id = ?`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListEntries(ctx context.Context, conn *gorm.DB, filter domain.EntryFilter) ([]domain.LogEntry, error) {
	var rows []domain.LogEntry
	stmt := conn.WithContext(ctx).Table("consultancy_log_entries").Select(entryColumns)

	if filter.From != nil {
		stmt = stmt.Where("work_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("work_date <= ?", filter.To.UTC())
	}
	if consultant := strings.TrimSpace(filter.Consultant); consultant != "" {
		stmt = stmt.Where("LOWER(consultant) = ?", strings.ToLower(consultant))
	}

	if err := stmt.Order("work_date desc, id desc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Totals reads both sides of the pool in one statement so the figures come
// from the same snapshot.
func (r *repo) Totals(ctx context.Context, conn *gorm.DB) (domain.Totals, error) {
	var out struct {
		TotalPurchased  float64
		ActivePurchased float64
		TotalConsumed   float64
	}
	err := conn.WithContext(ctx).Raw(
		`SELECT
			(SELECT COALESCE(SUM(credits), 0) FROM credit_blocks) AS total_purchased,
			(SELECT COALESCE(SUM(credits), 0) FROM credit_blocks WHERE active = ?) AS active_purchased,
			(SELECT COALESCE(SUM(credits_consumed), 0) FROM consultancy_log_entries) AS total_consumed`,
		true,
	).Scan(&out).Error
	if err != nil {
		return domain.Totals{}, err
	}
	return domain.Totals{
		TotalPurchased:  out.TotalPurchased,
		ActivePurchased: out.ActivePurchased,
		TotalConsumed:   out.TotalConsumed,
	}, nil
}
