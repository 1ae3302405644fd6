package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const entryColumns = `id, title, username, password_cipher, url, category, notes, strength,
	created_by, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, e *domain.Entry) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO password_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Title,
		db.NullString(e.Username),
		e.PasswordCipher,
		db.NullString(e.URL),
		db.NullString(e.Category),
		db.NullRawString(e.Notes),
		e.Strength,
		e.CreatedBy,
		e.CreatedAt,
		e.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, e *domain.Entry, keepPassword bool) (bool, error) {
	if keepPassword {
		res := conn.WithContext(ctx).Exec(
			`UPDATE password_entries
			 SET title = ?, username = ?, url = ?, category = ?, notes = ?, updated_at = ?
			 WHERE id = ?`,
			e.Title,
			db.NullString(e.Username),
			db.NullString(e.URL),
			db.NullString(e.Category),
			db.NullRawString(e.Notes),
			e.UpdatedAt,
			e.ID,
		)
		return res.RowsAffected > 0, res.Error
	}

	res := conn.WithContext(ctx).Exec(
		`UPDATE password_entries
		 SET title = ?, username = ?, password_cipher = ?, url = ?, category = ?, notes = ?,
		     strength = ?, updated_at = ?
		 WHERE id = ?`,
		e.Title,
		db.NullString(e.Username),
		e.PasswordCipher,
		db.NullString(e.URL),
		db.NullString(e.Category),
		db.NullRawString(e.Notes),
		e.Strength,
		e.UpdatedAt,
		e.ID,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.DeleteChildren(ctx, conn, "password_custom_fields", "entry_id", id); err != nil {
		return false, err
	}
	res := conn.WithContext(ctx).Exec(`DELETE FROM password_entries WHERE id = ?`, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Entry, error) {
	var row domain.Entry
	err := conn.WithContext(ctx).Raw(
		`SELECT `+entryColumns+` FROM password_entries WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]domain.Entry, error) {
	var rows []domain.Entry
	stmt := conn.WithContext(ctx).Table("password_entries").Select(entryColumns)

	if filter.Category != "" {
		stmt = stmt.Where("LOWER(category) = ?", strings.ToLower(filter.Category))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where("LOWER(title) LIKE ? OR LOWER(username) LIKE ? OR LOWER(url) LIKE ?", like, like, like)
	}

	if err := stmt.Order("title asc, id asc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ReplaceCustomFields(ctx context.Context, conn *gorm.DB, entryID snowflake.ID, rows []domain.CustomField) error {
	return db.ReplaceChildren(ctx, conn, "password_custom_fields", "entry_id", entryID, rows)
}

func (r *repo) ListCustomFields(ctx context.Context, conn *gorm.DB, entryIDs []snowflake.ID) (map[snowflake.ID][]domain.CustomField, error) {
	out := make(map[snowflake.ID][]domain.CustomField, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}

	var rows []domain.CustomField
	err := conn.WithContext(ctx).Raw(
		`SELECT id, entry_id, position, label, value, secret
		 FROM password_custom_fields
		 WHERE entry_id IN ?
		 ORDER BY entry_id, position`,
		entryIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.EntryID] = append(out[row.EntryID], row)
	}
	return out, nil
}
