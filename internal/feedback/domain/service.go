package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type LinkFields struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	TicketID    *string `json:"ticketId"`
	Active      *bool   `json:"active"`
	ExpiresAt   *string `json:"expiresAt"`
}

type CreateLinkRequest struct {
	LinkFields
}

type UpdateLinkRequest struct {
	LinkFields
}

type SubmitRequest struct {
	Rating        int     `json:"rating"`
	Comment       *string `json:"comment"`
	SubmitterName *string `json:"submitterName"`
}

type LinkResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	TicketID      *string    `json:"ticketId"`
	Active        bool       `json:"active"`
	Open          bool       `json:"open"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	ResponseCount int64      `json:"responseCount"`
	AverageRating *float64   `json:"averageRating"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type ResponseView struct {
	ID            string    `json:"id"`
	Rating        int       `json:"rating"`
	Comment       *string   `json:"comment"`
	SubmitterName *string   `json:"submitterName"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

type LinkDetail struct {
	LinkResponse
	Responses []ResponseView `json:"responses"`
}

// PublicLink is what an anonymous visitor sees before submitting.
type PublicLink struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type Repository interface {
	InsertLink(ctx context.Context, db *gorm.DB, link *Link) error
	UpdateLink(ctx context.Context, db *gorm.DB, link *Link) (bool, error)
	DeleteLink(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindLink(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LinkStats, error)
	FindLinkByCode(ctx context.Context, db *gorm.DB, code string) (*Link, error)
	ListLinks(ctx context.Context, db *gorm.DB) ([]LinkStats, error)
	InsertResponse(ctx context.Context, db *gorm.DB, resp *Response) error
	ListResponses(ctx context.Context, db *gorm.DB, linkID snowflake.ID) ([]Response, error)
	TicketExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type Service interface {
	ListLinks(ctx context.Context) ([]LinkResponse, error)
	GetLink(ctx context.Context, id string) (*LinkDetail, error)
	CreateLink(ctx context.Context, req CreateLinkRequest) (*LinkResponse, error)
	UpdateLink(ctx context.Context, id string, req UpdateLinkRequest) (*LinkResponse, error)
	DeleteLink(ctx context.Context, id string) error

	PublicLink(ctx context.Context, code string) (*PublicLink, error)
	Submit(ctx context.Context, code string, req SubmitRequest) (*ResponseView, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidTicket    = errors.New("invalid_ticket_id")
	ErrInvalidExpiresAt = errors.New("invalid_expires_at")
	ErrInvalidRating    = errors.New("invalid_rating")
	ErrInvalidComment   = errors.New("invalid_comment")
	ErrNotFound         = errors.New("not_found")
)
