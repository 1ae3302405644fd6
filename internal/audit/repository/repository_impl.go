package repository

import (
	"context"
	"strings"

	"github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, actor_id, action, target_type, target_id, target_name,
			detail, metadata, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.TargetName,
		entry.Detail,
		entry.Metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.AuditLogView, error) {
	var logs []domain.AuditLogView
	stmt := db.WithContext(ctx).
		Table("audit_logs AS a").
		Select(`a.id, a.actor_id, a.action, a.target_type, a.target_id, a.target_name,
			a.detail, a.metadata, a.ip_address, a.user_agent, a.created_at,
			u.name AS actor_name`).
		Joins("LEFT JOIN users u ON u.id = a.actor_id")

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("a.action = ?", action)
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		stmt = stmt.Where("a.target_type = ?", targetType)
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		stmt = stmt.Where("a.target_id = ?", targetID)
	}
	if filter.ActorID != nil {
		stmt = stmt.Where("a.actor_id = ?", *filter.ActorID)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("a.created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("a.created_at <= ?", filter.EndAt.UTC())
	}

	stmt = stmt.Order("a.created_at desc, a.id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	if err := stmt.Scan(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
