package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const entryColumns = `id, device_name, assigned_to, department, location, device_type, serial_number,
	os, cpu, ram_gb, storage_gb, antivirus_status, last_checked_at, status, notes, hardware,
	created_by, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, e *domain.Entry) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO it_check_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.DeviceName,
		e.AssignedTo,
		db.NullString(e.Department),
		db.NullString(e.Location),
		db.NullString(e.DeviceType),
		db.NullString(e.SerialNumber),
		db.NullString(e.OS),
		db.NullString(e.CPU),
		db.NullFloat(e.RAMGB),
		db.NullFloat(e.StorageGB),
		db.NullString(e.AntivirusStatus),
		db.NullTime(e.LastCheckedAt),
		e.Status,
		db.NullRawString(e.Notes),
		e.Hardware,
		e.CreatedBy,
		e.CreatedAt,
		e.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, e *domain.Entry) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE it_check_entries
		 SET device_name = ?, assigned_to = ?, department = ?, location = ?, device_type = ?,
		     serial_number = ?, os = ?, cpu = ?, ram_gb = ?, storage_gb = ?, antivirus_status = ?,
		     last_checked_at = ?, status = ?, notes = ?, hardware = ?, updated_at = ?
		 WHERE id = ?`,
		e.DeviceName,
		e.AssignedTo,
		db.NullString(e.Department),
		db.NullString(e.Location),
		db.NullString(e.DeviceType),
		db.NullString(e.SerialNumber),
		db.NullString(e.OS),
		db.NullString(e.CPU),
		db.NullFloat(e.RAMGB),
		db.NullFloat(e.StorageGB),
		db.NullString(e.AntivirusStatus),
		db.NullTime(e.LastCheckedAt),
		e.Status,
		db.NullRawString(e.Notes),
		e.Hardware,
		e.UpdatedAt,
		e.ID,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.DeleteChildren(ctx, conn, "it_check_speed_tests", "entry_id", id); err != nil {
		return false, err
	}
	if err := db.DeleteChildren(ctx, conn, "it_check_installed_apps", "entry_id", id); err != nil {
		return false, err
	}
	res := conn.WithContext(ctx).Exec(`DELETE FROM it_check_entries WHERE id = ?`, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Entry, error) {
	var row domain.Entry
	err := conn.WithContext(ctx).Raw(
		`SELECT `+entryColumns+` FROM it_check_entries WHERE id = ?`,
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
	stmt := conn.WithContext(ctx).Table("it_check_entries").Select(entryColumns)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Department != "" {
		stmt = stmt.Where("LOWER(department) = ?", strings.ToLower(filter.Department))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where(
			"LOWER(device_name) LIKE ? OR LOWER(assigned_to) LIKE ? OR LOWER(serial_number) LIKE ?",
			like, like, like,
		)
	}

	if err := stmt.Order("created_at desc, id desc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ReplaceSpeedTests(ctx context.Context, conn *gorm.DB, entryID snowflake.ID, rows []domain.SpeedTest) error {
	return db.ReplaceChildren(ctx, conn, "it_check_speed_tests", "entry_id", entryID, rows)
}

func (r *repo) ReplaceInstalledApps(ctx context.Context, conn *gorm.DB, entryID snowflake.ID, rows []domain.InstalledApp) error {
	return db.ReplaceChildren(ctx, conn, "it_check_installed_apps", "entry_id", entryID, rows)
}

func (r *repo) ListSpeedTests(ctx context.Context, conn *gorm.DB, entryIDs []snowflake.ID) (map[snowflake.ID][]domain.SpeedTest, error) {
	out := make(map[snowflake.ID][]domain.SpeedTest, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}

	var rows []domain.SpeedTest
	err := conn.WithContext(ctx).Raw(
		`SELECT id, entry_id, position, download_mbps, upload_mbps, ping_ms, tested_at, provider
		 FROM it_check_speed_tests
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

func (r *repo) ListInstalledApps(ctx context.Context, conn *gorm.DB, entryIDs []snowflake.ID) (map[snowflake.ID][]domain.InstalledApp, error) {
	out := make(map[snowflake.ID][]domain.InstalledApp, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}

	var rows []domain.InstalledApp
	err := conn.WithContext(ctx).Raw(
		`SELECT id, entry_id, position, name, version, publisher, licensed
		 FROM it_check_installed_apps
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
