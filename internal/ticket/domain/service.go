package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	AssigneeID  *string `json:"assigneeId"`
}

// UpdateTicketRequest replaces the editable fields. Nullable fields left out
// are cleared; priority and status keep their current value when omitted.
type UpdateTicketRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	AssigneeID  *string `json:"assigneeId"`
}

type ListTicketRequest struct {
	pagination.Pagination
	Status      string
	Priority    string
	AssigneeID  string
	RequesterID string
}

type AddCommentRequest struct {
	Body string `json:"body"`
}

type UploadAttachmentRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type CommentResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName *string   `json:"authorName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

type AttachmentResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type TicketResponse struct {
	ID            string               `json:"id"`
	TicketNumber  string               `json:"ticketNumber"`
	Title         string               `json:"title"`
	Description   *string              `json:"description"`
	Category      *string              `json:"category"`
	Priority      string               `json:"priority"`
	Status        string               `json:"status"`
	RequesterID   string               `json:"requesterId"`
	RequesterName *string              `json:"requesterName"`
	AssigneeID    *string              `json:"assigneeId"`
	AssigneeName  *string              `json:"assigneeName"`
	ResolvedAt    *time.Time           `json:"resolvedAt"`
	Comments      []CommentResponse    `json:"comments,omitempty"`
	Attachments   []AttachmentResponse `json:"attachments,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

type ListTicketResponse struct {
	pagination.PageInfo
	Tickets []TicketResponse `json:"tickets"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	Update(ctx context.Context, db *gorm.DB, ticket *Ticket) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TicketView, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*TicketView, error)
	InsertComment(ctx context.Context, db *gorm.DB, comment *Comment) error
	ListComments(ctx context.Context, db *gorm.DB, ticketID snowflake.ID) ([]CommentView, error)
	InsertAttachment(ctx context.Context, db *gorm.DB, attachment *Attachment) error
	FindAttachment(ctx context.Context, db *gorm.DB, ticketID, attachmentID snowflake.ID) (*Attachment, error)
	ListAttachments(ctx context.Context, db *gorm.DB, ticketID snowflake.ID) ([]Attachment, error)
	UserExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateTicketRequest) (*TicketResponse, error)
	List(ctx context.Context, req ListTicketRequest) (*ListTicketResponse, error)
	Get(ctx context.Context, id string) (*TicketResponse, error)
	Update(ctx context.Context, id string, req UpdateTicketRequest) (*TicketResponse, error)
	Delete(ctx context.Context, id string) error
	AddComment(ctx context.Context, id string, req AddCommentRequest) (*CommentResponse, error)
	AddAttachment(ctx context.Context, id string, req UploadAttachmentRequest) (*AttachmentResponse, error)
	OpenAttachment(ctx context.Context, id string, attachmentID string) (*Attachment, io.ReadCloser, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidTitle       = errors.New("invalid_title")
	ErrInvalidPriority    = errors.New("invalid_priority")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidAssignee    = errors.New("invalid_assignee_id")
	ErrInvalidRequester   = errors.New("invalid_requester_id")
	ErrInvalidBody        = errors.New("invalid_body")
	ErrInvalidFileName    = errors.New("invalid_file_name")
	ErrAttachmentTooLarge = errors.New("invalid_attachment_size")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not_found")
)
