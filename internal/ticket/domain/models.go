package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

var (
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	Statuses   = []string{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
)

// MaxAttachmentSize caps a single uploaded file.
const MaxAttachmentSize = 10 << 20

type Ticket struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	TicketNumber string        `gorm:"column:ticket_number;type:varchar(64);not null;uniqueIndex"`
	Title        string        `gorm:"type:text;not null"`
	Description  *string       `gorm:"type:text"`
	Category     *string       `gorm:"type:text"`
	Priority     string        `gorm:"type:varchar(16);not null;index"`
	Status       string        `gorm:"type:varchar(16);not null;index"`
	RequesterID  snowflake.ID  `gorm:"column:requester_id;not null;index"`
	AssigneeID   *snowflake.ID `gorm:"column:assignee_id;index"`
	ResolvedAt   *time.Time    `gorm:"column:resolved_at"`
	CreatedAt    time.Time     `gorm:"not null;index"`
	UpdatedAt    time.Time     `gorm:"not null"`
}

func (Ticket) TableName() string { return "tickets" }

// TicketView is a ticket joined with requester and assignee display names.
type TicketView struct {
	Ticket
	RequesterName *string `gorm:"column:requester_name"`
	AssigneeName  *string `gorm:"column:assignee_name"`
}

type Comment struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TicketID  snowflake.ID `gorm:"column:ticket_id;not null;index"`
	AuthorID  snowflake.ID `gorm:"column:author_id;not null"`
	Body      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null"`
}

func (Comment) TableName() string { return "ticket_comments" }

type CommentView struct {
	Comment
	AuthorName *string `gorm:"column:author_name"`
}

// Attachment is the metadata row; the payload lives in the blob store under
// StorageKey.
type Attachment struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	TicketID    snowflake.ID `gorm:"column:ticket_id;not null;index"`
	FileName    string       `gorm:"column:file_name;type:text;not null"`
	ContentType string       `gorm:"column:content_type;type:text;not null"`
	Size        int64        `gorm:"not null"`
	StorageKey  string       `gorm:"column:storage_key;type:text;not null"`
	UploadedBy  snowflake.ID `gorm:"column:uploaded_by;not null"`
	CreatedAt   time.Time    `gorm:"not null"`
}

func (Attachment) TableName() string { return "ticket_attachments" }

type ListFilter struct {
	Status      string
	Priority    string
	AssigneeID  *snowflake.ID
	RequesterID *snowflake.ID
	CursorAt    *time.Time
	CursorID    *snowflake.ID
	Limit       int
}
