package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/license/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const licenseColumns = `id, name, license_key, vendor, seats, seats_used, purchase_date, expiry_date,
	cost, assigned_to, notes, active, created_by, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, l *domain.License) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO software_licenses (`+licenseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.Name,
		l.LicenseKey,
		db.NullString(l.Vendor),
		db.NullInt(l.Seats),
		db.NullInt(l.SeatsUsed),
		db.NullTime(l.PurchaseDate),
		db.NullTime(l.ExpiryDate),
		db.NullFloat(l.Cost),
		db.NullString(l.AssignedTo),
		db.NullRawString(l.Notes),
		l.Active,
		l.CreatedBy,
		l.CreatedAt,
		l.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, l *domain.License) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE software_licenses
		 SET name = ?, license_key = ?, vendor = ?, seats = ?, seats_used = ?,
		     purchase_date = ?, expiry_date = ?, cost = ?, assigned_to = ?, notes = ?,
		     active = ?, updated_at = ?
		 WHERE id = ?`,
		l.Name,
		l.LicenseKey,
		db.NullString(l.Vendor),
		db.NullInt(l.Seats),
		db.NullInt(l.SeatsUsed),
		db.NullTime(l.PurchaseDate),
		db.NullTime(l.ExpiryDate),
		db.NullFloat(l.Cost),
		db.NullString(l.AssignedTo),
		db.NullRawString(l.Notes),
		l.Active,
		l.UpdatedAt,
		l.ID,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.DeleteChildren(ctx, conn, "license_addons", "license_id", id); err != nil {
		return false, err
	}
	res := conn.WithContext(ctx).Exec(`DELETE FROM software_licenses WHERE id = ?`, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) ReplaceAddons(ctx context.Context, conn *gorm.DB, licenseID snowflake.ID, addons []domain.Addon) error {
	return db.ReplaceChildren(ctx, conn, "license_addons", "license_id", licenseID, addons)
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.License, error) {
	var row domain.License
	err := conn.WithContext(ctx).Raw(
		`SELECT `+licenseColumns+` FROM software_licenses WHERE id = ?`,
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

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]domain.License, error) {
	var rows []domain.License
	stmt := conn.WithContext(ctx).Table("software_licenses").Select(licenseColumns)

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where("LOWER(name) LIKE ? OR LOWER(vendor) LIKE ? OR LOWER(assigned_to) LIKE ?", like, like, like)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.ExpiringBy != nil {
		stmt = stmt.Where("expiry_date IS NOT NULL AND expiry_date <= ?", filter.ExpiringBy.UTC())
	}

	if err := stmt.Order("name asc, id asc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAddons loads dependents for a page of licenses in one query and groups
// them per license in position order.
func (r *repo) ListAddons(ctx context.Context, conn *gorm.DB, licenseIDs []snowflake.ID) (map[snowflake.ID][]domain.Addon, error) {
	out := make(map[snowflake.ID][]domain.Addon, len(licenseIDs))
	if len(licenseIDs) == 0 {
		return out, nil
	}

	var rows []domain.Addon
	err := conn.WithContext(ctx).Raw(
		`SELECT id, license_id, position, name, license_key, cost, expiry_date
		 FROM license_addons
		 WHERE license_id IN ?
		 ORDER BY license_id, position`,
		licenseIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LicenseID] = append(out[row.LicenseID], row)
	}
	return out, nil
}
