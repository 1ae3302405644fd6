package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const ticketSelect = `SELECT t.id, t.ticket_number, t.title, t.description, t.category, t.priority, t.status,
		t.requester_id, t.assignee_id, t.resolved_at, t.created_at, t.updated_at,
		r.name AS requester_name, a.name AS assignee_name
	FROM tickets AS t
	LEFT JOIN users r ON r.id = t.requester_id
	LEFT JOIN users a ON a.id = t.assignee_id`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, t *domain.Ticket) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO tickets (id, ticket_number, title, description, category, priority, status,
			requester_id, assignee_id, resolved_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.TicketNumber,
		t.Title,
		db.NullRawString(t.Description),
		db.NullString(t.Category),
		t.Priority,
		t.Status,
		t.RequesterID,
		t.AssigneeID,
		db.NullTime(t.ResolvedAt),
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, t *domain.Ticket) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE tickets
		 SET title = ?, description = ?, category = ?, priority = ?, status = ?,
		     assignee_id = ?, resolved_at = ?, updated_at = ?
		 WHERE id = ?`,
		t.Title,
		db.NullRawString(t.Description),
		db.NullString(t.Category),
		t.Priority,
		t.Status,
		t.AssigneeID,
		db.NullTime(t.ResolvedAt),
		t.UpdatedAt,
		t.ID,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.DeleteChildren(ctx, conn, "ticket_comments", "ticket_id", id); err != nil {
		return false, err
	}
	if err := db.DeleteChildren(ctx, conn, "ticket_attachments", "ticket_id", id); err != nil {
		return false, err
	}
	// feedback links outlive their ticket
	if err := conn.WithContext(ctx).Exec(`UPDATE feedback_links SET ticket_id = NULL WHERE ticket_id = ?`, id).Error; err != nil {
		return false, err
	}
	res := conn.WithContext(ctx).Exec(`DELETE FROM tickets WHERE id = ?`, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.TicketView, error) {
	var row domain.TicketView
	err := conn.WithContext(ctx).Raw(ticketSelect+` WHERE t.id = ?`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

// List pages newest first using a (created_at, id) keyset.
func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.TicketView, error) {
	query := ticketSelect + ` WHERE 1 = 1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		query += ` AND t.priority = ?`
		args = append(args, filter.Priority)
	}
	if filter.AssigneeID != nil {
		query += ` AND t.assignee_id = ?`
		args = append(args, *filter.AssigneeID)
	}
	if filter.RequesterID != nil {
		query += ` AND t.requester_id = ?`
		args = append(args, *filter.RequesterID)
	}
	if filter.CursorAt != nil && filter.CursorID != nil {
		query += ` AND (t.created_at < ? OR (t.created_at = ? AND t.id < ?))`
		args = append(args, filter.CursorAt.UTC(), filter.CursorAt.UTC(), *filter.CursorID)
	}

	query += ` ORDER BY t.created_at DESC, t.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []*domain.TicketView
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertComment(ctx context.Context, conn *gorm.DB, c *domain.Comment) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO ticket_comments (id, ticket_id, author_id, body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID,
		c.TicketID,
		c.AuthorID,
		c.Body,
		c.CreatedAt,
	).Error
}

func (r *repo) ListComments(ctx context.Context, conn *gorm.DB, ticketID snowflake.ID) ([]domain.CommentView, error) {
	var rows []domain.CommentView
	err := conn.WithContext(ctx).Raw(
		`SELECT c.id, c.ticket_id, c.author_id, c.body, c.created_at, u.name AS author_name
		 FROM ticket_comments AS c
		 LEFT JOIN users u ON u.id = c.author_id
		 WHERE c.ticket_id = ?
		 ORDER BY c.created_at ASC, c.id ASC`,
		ticketID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertAttachment(ctx context.Context, conn *gorm.DB, a *domain.Attachment) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO ticket_attachments (id, ticket_id, file_name, content_type, size, storage_key, uploaded_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.TicketID,
		a.FileName,
		a.ContentType,
		a.Size,
		a.StorageKey,
		a.UploadedBy,
		a.CreatedAt,
	).Error
}

func (r *repo) FindAttachment(ctx context.Context, conn *gorm.DB, ticketID, attachmentID snowflake.ID) (*domain.Attachment, error) {
	var row domain.Attachment
	err := conn.WithContext(ctx).Raw(
		`SELECT id, ticket_id, file_name, content_type, size, storage_key, uploaded_by, created_at
		 FROM ticket_attachments
		 WHERE ticket_id = ? AND id = ?`,
		ticketID, attachmentID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListAttachments(ctx context.Context, conn *gorm.DB, ticketID snowflake.ID) ([]domain.Attachment, error) {
	var rows []domain.Attachment
	err := conn.WithContext(ctx).Raw(
		`SELECT id, ticket_id, file_name, content_type, size, storage_key, uploaded_by, created_at
		 FROM ticket_attachments
		 WHERE ticket_id = ?
		 ORDER BY created_at ASC, id ASC`,
		ticketID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UserExists(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(`SELECT COUNT(1) FROM users WHERE id = ?`, id).Scan(&count).Error
	return count > 0, err
}
