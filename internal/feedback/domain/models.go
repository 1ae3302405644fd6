package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	MinRating = 1
	MaxRating = 5

	// MaxCommentLength bounds the free-text part of a public submission.
	MaxCommentLength = 2000
)

// Link is a shareable feedback form. Code is the public handle.
type Link struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	Code        string        `gorm:"type:varchar(96);not null;uniqueIndex"`
	Title       string        `gorm:"type:text;not null"`
	Description *string       `gorm:"type:text"`
	TicketID    *snowflake.ID `gorm:"column:ticket_id;index"`
	Active      bool          `gorm:"not null"`
	ExpiresAt   *time.Time    `gorm:"column:expires_at"`
	CreatedBy   *snowflake.ID `gorm:"column:created_by"`
	CreatedAt   time.Time     `gorm:"not null"`
	UpdatedAt   time.Time     `gorm:"not null"`
}

func (Link) TableName() string { return "feedback_links" }

// Open reports whether the link still accepts responses at now.
func (l *Link) Open(now time.Time) bool {
	if !l.Active {
		return false
	}
	return l.ExpiresAt == nil || now.Before(*l.ExpiresAt)
}

// LinkStats is a link with its response aggregates.
type LinkStats struct {
	Link          `gorm:"embedded"`
	ResponseCount int64 `gorm:"column:response_count"`
	RatingSum     int64 `gorm:"column:rating_sum"`
}

func (s LinkStats) AverageRating() *float64 {
	if s.ResponseCount == 0 {
		return nil
	}
	avg := float64(s.RatingSum) / float64(s.ResponseCount)
	return &avg
}

type Response struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	LinkID        snowflake.ID `gorm:"column:link_id;not null;index"`
	Rating        int          `gorm:"not null"`
	Comment       *string      `gorm:"type:text"`
	SubmitterName *string      `gorm:"column:submitter_name;type:text"`
	SubmittedAt   time.Time    `gorm:"column:submitted_at;not null"`
}

func (Response) TableName() string { return "feedback_responses" }
