package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/datefield"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	linkTarget = "feedback_link"

	maxSlugLength = 48
	codeAttempts  = 3
)

type Params struct {
	fx.In

	DB       *gorm.DB
	DBConfig db.Config `optional:"true"`
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	txTimeout time.Duration
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	auditSvc  auditdomain.Service
	metrics   *obsmetrics.Metrics
	newCode   func(title string) string
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		txTimeout: p.DBConfig.StatementTimeout,
		log:       p.Log.Named("feedback.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
		newCode:   linkCode,
	}
}

func (s *Service) ListLinks(ctx context.Context) ([]domain.LinkResponse, error) {
	rows, err := s.repo.ListLinks(ctx, s.db)
	if err != nil {
		s.log.Error("failed to list feedback links", zap.Error(err))
		return nil, err
	}
	now := s.clock.Now()
	out := make([]domain.LinkResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLinkResponse(row, now))
	}
	return out, nil
}

func (s *Service) GetLink(ctx context.Context, id string) (*domain.LinkDetail, error) {
	linkID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindLink(ctx, s.db, linkID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	responses, err := s.repo.ListResponses(ctx, s.db, linkID)
	if err != nil {
		s.log.Error("failed to load feedback responses", zap.String("link_id", id), zap.Error(err))
		return nil, err
	}

	detail := &domain.LinkDetail{
		LinkResponse: toLinkResponse(*row, s.clock.Now()),
		Responses:    make([]domain.ResponseView, 0, len(responses)),
	}
	for i := range responses {
		detail.Responses = append(detail.Responses, toResponseView(&responses[i]))
	}
	return detail, nil
}

func (s *Service) CreateLink(ctx context.Context, req domain.CreateLinkRequest) (*domain.LinkResponse, error) {
	link, err := validateLink(req.LinkFields)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	link.ID = s.genID.Generate()
	link.CreatedBy = identity.ActorID(ctx)
	link.CreatedAt = now
	link.UpdatedAt = now

	// A code collision only costs a retry with a fresh suffix.
	for attempt := 1; ; attempt++ {
		link.Code = s.newCode(link.Title)
		err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
			if err := s.checkTicket(ctx, tx, link.TicketID); err != nil {
				return err
			}
			if err := s.repo.InsertLink(ctx, tx, link); err != nil {
				return err
			}
			return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
				Action:     auditdomain.ActionAddEntry,
				TargetType: linkTarget,
				TargetID:   link.ID.String(),
				TargetName: link.Title,
				Metadata:   map[string]any{"code": link.Code},
			})
		})
		if err == nil || !db.IsDuplicateKeyErr(err) || attempt == codeAttempts {
			break
		}
		s.log.Warn("feedback code collision, retrying", zap.String("code", link.Code), zap.Int("attempt", attempt))
	}
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidTicket) {
			s.log.Error("failed to create feedback link", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, linkTarget, auditdomain.ActionAddEntry)
	resp := toLinkResponse(domain.LinkStats{Link: *link}, s.clock.Now())
	return &resp, nil
}

func (s *Service) UpdateLink(ctx context.Context, id string, req domain.UpdateLinkRequest) (*domain.LinkResponse, error) {
	linkID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	link, err := validateLink(req.LinkFields)
	if err != nil {
		return nil, err
	}
	link.ID = linkID
	link.UpdatedAt = s.clock.Now().UTC()

	var resp domain.LinkResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		if err := s.checkTicket(ctx, tx, link.TicketID); err != nil {
			return err
		}
		ok, err := s.repo.UpdateLink(ctx, tx, link)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdateEntry,
			TargetType: linkTarget,
			TargetID:   linkID.String(),
			TargetName: link.Title,
			Metadata:   map[string]any{"active": link.Active},
		}); err != nil {
			return err
		}
		stored, err := s.repo.FindLink(ctx, tx, linkID)
		if err != nil {
			return err
		}
		resp = toLinkResponse(*stored, s.clock.Now())
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidTicket) {
			s.log.Error("failed to update feedback link", zap.String("link_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, linkTarget, auditdomain.ActionUpdateEntry)
	return &resp, nil
}

func (s *Service) DeleteLink(ctx context.Context, id string) error {
	linkID, err := parseID(id)
	if err != nil {
		return err
	}
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		existing, err := s.repo.FindLink(ctx, tx, linkID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if _, err := s.repo.DeleteLink(ctx, tx, linkID); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionDeleteEntry,
			TargetType: linkTarget,
			TargetID:   linkID.String(),
			TargetName: existing.Title,
			Metadata:   map[string]any{"responses": existing.ResponseCount},
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to delete feedback link", zap.String("link_id", id), zap.Error(err))
		}
		return err
	}
	s.metrics.RecordEntityWrite(ctx, linkTarget, auditdomain.ActionDeleteEntry)
	return nil
}

// PublicLink hides closed links behind the same not found answer as missing
// ones.
func (s *Service) PublicLink(ctx context.Context, code string) (*domain.PublicLink, error) {
	link, err := s.repo.FindLinkByCode(ctx, s.db, strings.TrimSpace(code))
	if err != nil {
		s.log.Error("failed to load feedback link", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	if link == nil || !link.Open(s.clock.Now()) {
		return nil, domain.ErrNotFound
	}
	return &domain.PublicLink{
		Code:        link.Code,
		Title:       link.Title,
		Description: link.Description,
		ExpiresAt:   link.ExpiresAt,
	}, nil
}

func (s *Service) Submit(ctx context.Context, code string, req domain.SubmitRequest) (*domain.ResponseView, error) {
	if req.Rating < domain.MinRating || req.Rating > domain.MaxRating {
		return nil, domain.ErrInvalidRating
	}
	if req.Comment != nil && utf8.RuneCountInString(*req.Comment) > domain.MaxCommentLength {
		return nil, domain.ErrInvalidComment
	}

	resp := &domain.Response{
		ID:            s.genID.Generate(),
		Rating:        req.Rating,
		Comment:       req.Comment,
		SubmitterName: req.SubmitterName,
		SubmittedAt:   s.clock.Now().UTC(),
	}
	err := db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		link, err := s.repo.FindLinkByCode(ctx, tx, strings.TrimSpace(code))
		if err != nil {
			return err
		}
		if link == nil || !link.Open(resp.SubmittedAt) {
			return domain.ErrNotFound
		}
		resp.LinkID = link.ID
		if err := s.repo.InsertResponse(ctx, tx, resp); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionSubmitFeedback,
			TargetType: linkTarget,
			TargetID:   link.ID.String(),
			TargetName: link.Title,
			Metadata:   map[string]any{"rating": resp.Rating},
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to store feedback response", zap.String("code", code), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, linkTarget, auditdomain.ActionSubmitFeedback)
	view := toResponseView(resp)
	return &view, nil
}

func (s *Service) checkTicket(ctx context.Context, tx *gorm.DB, ticketID *snowflake.ID) error {
	if ticketID == nil {
		return nil
	}
	ok, err := s.repo.TicketExists(ctx, tx, *ticketID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidTicket
	}
	return nil
}

func validateLink(in domain.LinkFields) (*domain.Link, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	expiresAt, err := datefield.Parse(in.ExpiresAt)
	if err != nil {
		return nil, domain.ErrInvalidExpiresAt
	}

	var ticketID *snowflake.ID
	if in.TicketID != nil && strings.TrimSpace(*in.TicketID) != "" {
		parsed, err := parseID(*in.TicketID)
		if err != nil {
			return nil, domain.ErrInvalidTicket
		}
		ticketID = &parsed
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return &domain.Link{
		Title:       title,
		Description: in.Description,
		TicketID:    ticketID,
		Active:      active,
		ExpiresAt:   expiresAt,
	}, nil
}

// linkCode slugs the title and appends a random suffix so codes are readable
// but not guessable.
func linkCode(title string) string {
	base := slug.Make(title)
	if len(base) > maxSlugLength {
		base = strings.TrimRight(base[:maxSlugLength], "-")
	}
	if base == "" {
		base = "feedback"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return base + "-" + suffix
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func toLinkResponse(row domain.LinkStats, now time.Time) domain.LinkResponse {
	var ticketID *string
	if row.TicketID != nil {
		v := row.TicketID.String()
		ticketID = &v
	}
	return domain.LinkResponse{
		ID:            row.ID.String(),
		Code:          row.Code,
		Title:         row.Title,
		Description:   row.Description,
		TicketID:      ticketID,
		Active:        row.Active,
		Open:          row.Link.Open(now),
		ExpiresAt:     row.ExpiresAt,
		ResponseCount: row.ResponseCount,
		AverageRating: row.AverageRating(),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toResponseView(r *domain.Response) domain.ResponseView {
	return domain.ResponseView{
		ID:            r.ID.String(),
		Rating:        r.Rating,
		Comment:       r.Comment,
		SubmitterName: r.SubmitterName,
		SubmittedAt:   r.SubmittedAt,
	}
}
