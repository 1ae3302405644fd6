package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const linkColumns = `id, code, title, description, ticket_id, active, expires_at, created_by, created_at, updated_at`

// statsSelect aggregates responses in a derived table so links without any
// response still come back with zero counts.
const statsSelect = `SELECT l.id, l.code, l.title, l.description, l.ticket_id, l.active, l.expires_at,
	       l.created_by, l.created_at, l.updated_at,
	       COALESCE(r.response_count, 0) AS response_count,
	       COALESCE(r.rating_sum, 0) AS rating_sum
	  FROM feedback_links l
	  LEFT JOIN (
	        SELECT link_id, COUNT(1) AS response_count, SUM(rating) AS rating_sum
	          FROM feedback_responses
	         GROUP BY link_id
	       ) r ON r.link_id = l.id`

func (r *repo) InsertLink(ctx context.Context, conn *gorm.DB, l *domain.Link) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO feedback_links (`+linkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.Code,
		l.Title,
		db.NullRawString(l.Description),
		l.TicketID,
		l.Active,
		db.NullTime(l.ExpiresAt),
		l.CreatedBy,
		l.CreatedAt,
		l.UpdatedAt,
	).Error
}

func (r *repo) UpdateLink(ctx context.Context, conn *gorm.DB, l *domain.Link) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE feedback_links
		 SET title = ?, description = ?, ticket_id = ?, active = ?, expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		l.Title,
		db.NullRawString(l.Description),
		l.TicketID,
		l.Active,
		db.NullTime(l.ExpiresAt),
		l.UpdatedAt,
		l.ID,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) DeleteLink(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.DeleteChildren(ctx, conn, "feedback_responses", "link_id", id); err != nil {
		return false, err
	}
	res := conn.WithContext(ctx).Exec(`DELETE FROM feedback_links WHERE id = ?`, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindLink(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.LinkStats, error) {
	var row domain.LinkStats
	if err := conn.WithContext(ctx).Raw(statsSelect+` WHERE l.id = ?`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) FindLinkByCode(ctx context.Context, conn *gorm.DB, code string) (*domain.Link, error) {
	var row domain.Link
	err := conn.WithContext(ctx).Raw(
		`SELECT `+linkColumns+` FROM feedback_links WHERE code = ?`,
		code,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListLinks(ctx context.Context, conn *gorm.DB) ([]domain.LinkStats, error) {
	var rows []domain.LinkStats
	if err := conn.WithContext(ctx).Raw(statsSelect + ` ORDER BY l.created_at DESC, l.id DESC`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertResponse(ctx context.Context, conn *gorm.DB, resp *domain.Response) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO feedback_responses (id, link_id, rating, comment, submitter_name, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		resp.ID,
		resp.LinkID,
		resp.Rating,
		db.NullRawString(resp.Comment),
		db.NullString(resp.SubmitterName),
		resp.SubmittedAt,
	).Error
}

func (r *repo) ListResponses(ctx context.Context, conn *gorm.DB, linkID snowflake.ID) ([]domain.Response, error) {
	var rows []domain.Response
	err := conn.WithContext(ctx).Raw(
		`SELECT id, link_id, rating, comment, submitter_name, submitted_at
		   FROM feedback_responses
		  WHERE link_id = ?
		  ORDER BY submitted_at DESC, id DESC`,
		linkID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) TicketExists(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(`SELECT COUNT(1) FROM tickets WHERE id = ?`, id).Scan(&count).Error
	return count > 0, err
}
