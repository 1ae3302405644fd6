package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/blob"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/sequence"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const targetType = "ticket"

type Params struct {
	fx.In

	DB       *gorm.DB
	DBConfig db.Config `optional:"true"`
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Sequence sequence.Generator
	Blob     blob.Store
	AuditSvc auditdomain.Service
	Settings *config.SettingsHolder `optional:"true"`
	Metrics  *obsmetrics.Metrics    `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	txTimeout time.Duration
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	sequence  sequence.Generator
	blob      blob.Store
	auditSvc  auditdomain.Service
	settings  *config.SettingsHolder
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		txTimeout: p.DBConfig.StatementTimeout,
		log:       p.Log.Named("ticket.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		sequence:  p.Sequence,
		blob:      p.Blob,
		auditSvc:  p.AuditSvc,
		settings:  p.Settings,
		metrics:   p.Metrics,
	}
}

// Create numbers the ticket from the day's counter. The counter bump, the
// ticket row and the audit row commit or roll back together.
func (s *Service) Create(ctx context.Context, req domain.CreateTicketRequest) (*domain.TicketResponse, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	priority, err := parseEnum(req.Priority, domain.PriorityMedium, domain.Priorities, domain.ErrInvalidPriority)
	if err != nil {
		return nil, err
	}
	assigneeID, err := parseOptionalID(req.AssigneeID, domain.ErrInvalidAssignee)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	ticket := domain.Ticket{
		ID:          s.genID.Generate(),
		Title:       title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    priority,
		Status:      domain.StatusOpen,
		RequesterID: caller.ID,
		AssigneeID:  assigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	prefix := s.settings.Get().TicketPrefix

	var resp *domain.TicketResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		if err := s.ensureAssignee(ctx, tx, assigneeID); err != nil {
			return err
		}
		seq, err := s.sequence.Next(ctx, tx, now)
		if err != nil {
			return err
		}
		number, err := sequence.FormatTicketNumber(prefix, now, seq)
		if err != nil {
			return err
		}
		ticket.TicketNumber = number

		if err := s.repo.Insert(ctx, tx, &ticket); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return sequence.ErrSequenceConflict
			}
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAddEntry,
			TargetType: targetType,
			TargetID:   ticket.ID.String(),
			TargetName: ticket.TicketNumber,
			Metadata:   map[string]any{"priority": ticket.Priority},
		}); err != nil {
			return err
		}
		view, err := s.repo.FindByID(ctx, tx, ticket.ID)
		if err != nil {
			return err
		}
		out := toResponse(view)
		resp = &out
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			s.log.Error("failed to create ticket", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordTicketNumber(ctx)
	s.metrics.RecordEntityWrite(ctx, targetType, auditdomain.ActionAddEntry)
	return resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTicketRequest) (*domain.ListTicketResponse, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	filter := domain.ListFilter{Limit: req.Size() + 1}
	if req.Status != "" {
		if !slices.Contains(domain.Statuses, req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = req.Status
	}
	if req.Priority != "" {
		if !slices.Contains(domain.Priorities, req.Priority) {
			return nil, domain.ErrInvalidPriority
		}
		filter.Priority = req.Priority
	}
	assignee, err := parseOptionalID(&req.AssigneeID, domain.ErrInvalidAssignee)
	if err != nil {
		return nil, err
	}
	filter.AssigneeID = assignee
	requester, err := parseOptionalID(&req.RequesterID, domain.ErrInvalidRequester)
	if err != nil {
		return nil, err
	}
	filter.RequesterID = requester
	if caller.Role == identity.RoleViewer {
		own := caller.ID
		filter.RequesterID = &own
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		filter.CursorAt = &at
		filter.CursorID = &id
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		s.log.Error("failed to list tickets", zap.Error(err))
		return nil, err
	}

	page, info := pagination.BuildCursorPageInfo(rows, req.Size(), func(v *domain.TicketView) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        v.ID.String(),
			CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	out := &domain.ListTicketResponse{PageInfo: info, Tickets: make([]domain.TicketResponse, 0, len(page))}
	for _, v := range page {
		out.Tickets = append(out.Tickets, toResponse(v))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.TicketResponse, error) {
	ticketID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	view, err := s.visible(ctx, s.db, ticketID)
	if err != nil {
		return nil, err
	}

	comments, err := s.repo.ListComments(ctx, s.db, ticketID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.repo.ListAttachments(ctx, s.db, ticketID)
	if err != nil {
		return nil, err
	}

	resp := toResponse(view)
	resp.Comments = make([]domain.CommentResponse, 0, len(comments))
	for _, c := range comments {
		resp.Comments = append(resp.Comments, toCommentResponse(c))
	}
	resp.Attachments = make([]domain.AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		resp.Attachments = append(resp.Attachments, toAttachmentResponse(a))
	}
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateTicketRequest) (*domain.TicketResponse, error) {
	ticketID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	assigneeID, err := parseOptionalID(req.AssigneeID, domain.ErrInvalidAssignee)
	if err != nil {
		return nil, err
	}
	// blank keeps the current value
	priority, err := parseEnum(req.Priority, "", domain.Priorities, domain.ErrInvalidPriority)
	if err != nil {
		return nil, err
	}
	status, err := parseEnum(req.Status, "", domain.Statuses, domain.ErrInvalidStatus)
	if err != nil {
		return nil, err
	}

	var resp *domain.TicketResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if err := s.ensureAssignee(ctx, tx, assigneeID); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		next := current.Ticket
		next.Title = title
		next.Description = req.Description
		next.Category = req.Category
		next.AssigneeID = assigneeID
		next.UpdatedAt = now
		if priority != "" {
			next.Priority = priority
		}
		if status != "" {
			next.Status = status
		}
		next.ResolvedAt = resolvedAt(current.Status, next.Status, current.ResolvedAt, now)

		if _, err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdateEntry,
			TargetType: targetType,
			TargetID:   ticketID.String(),
			TargetName: current.TicketNumber,
			Metadata: map[string]any{
				"status_from": current.Status,
				"status_to":   next.Status,
			},
		}); err != nil {
			return err
		}
		view, err := s.repo.FindByID(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		out := toResponse(view)
		resp = &out
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			s.log.Error("failed to update ticket", zap.String("ticket_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, targetType, auditdomain.ActionUpdateEntry)
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ticketID, err := parseID(id)
	if err != nil {
		return err
	}

	var attachments []domain.Attachment
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		attachments, err = s.repo.ListAttachments(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if _, err := s.repo.Delete(ctx, tx, ticketID); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionDeleteEntry,
			TargetType: targetType,
			TargetID:   ticketID.String(),
			TargetName: current.TicketNumber,
		})
	})
	if err != nil {
		if !isClientError(err) {
			s.log.Error("failed to delete ticket", zap.String("ticket_id", id), zap.Error(err))
		}
		return err
	}

	for _, a := range attachments {
		if err := s.blob.Delete(ctx, a.StorageKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
			s.log.Warn("orphaned attachment blob", zap.String("key", a.StorageKey), zap.Error(err))
		}
	}
	s.metrics.RecordEntityWrite(ctx, targetType, auditdomain.ActionDeleteEntry)
	return nil
}

func (s *Service) AddComment(ctx context.Context, id string, req domain.AddCommentRequest) (*domain.CommentResponse, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	ticketID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, domain.ErrInvalidBody
	}

	comment := domain.Comment{
		ID:        s.genID.Generate(),
		TicketID:  ticketID,
		AuthorID:  caller.ID,
		Body:      body,
		CreatedAt: s.clock.Now().UTC(),
	}
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		view, err := s.visible(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if err := s.repo.InsertComment(ctx, tx, &comment); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAddComment,
			TargetType: targetType,
			TargetID:   ticketID.String(),
			TargetName: view.TicketNumber,
		})
	})
	if err != nil {
		if !isClientError(err) {
			s.log.Error("failed to add ticket comment", zap.String("ticket_id", id), zap.Error(err))
		}
		return nil, err
	}

	name := caller.Name
	resp := toCommentResponse(domain.CommentView{Comment: comment, AuthorName: &name})
	return &resp, nil
}

// AddAttachment writes the payload to the blob store first and removes it
// again when the metadata transaction fails.
func (s *Service) AddAttachment(ctx context.Context, id string, req domain.UploadAttachmentRequest) (*domain.AttachmentResponse, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	ticketID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	fileName := cleanFileName(req.FileName)
	if fileName == "" {
		return nil, domain.ErrInvalidFileName
	}
	if req.Size > domain.MaxAttachmentSize || req.Body == nil {
		return nil, domain.ErrAttachmentTooLarge
	}
	if _, err := s.visible(ctx, s.db, ticketID); err != nil {
		return nil, err
	}

	// Read one byte past the cap so an understated Size is still caught.
	payload, err := io.ReadAll(io.LimitReader(req.Body, domain.MaxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if len(payload) > domain.MaxAttachmentSize {
		return nil, domain.ErrAttachmentTooLarge
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	attachment := domain.Attachment{
		ID:          s.genID.Generate(),
		TicketID:    ticketID,
		FileName:    fileName,
		ContentType: contentType,
		UploadedBy:  caller.ID,
		CreatedAt:   s.clock.Now().UTC(),
	}
	attachment.StorageKey = fmt.Sprintf("tickets/%s/%s-%s", ticketID, attachment.ID, fileName)

	info, err := s.blob.Put(ctx, attachment.StorageKey, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType})
	if err != nil {
		s.log.Error("failed to store attachment", zap.String("ticket_id", id), zap.Error(err))
		return nil, err
	}
	attachment.Size = info.Size

	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		view, err := s.visible(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if err := s.repo.InsertAttachment(ctx, tx, &attachment); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAddAttachment,
			TargetType: targetType,
			TargetID:   ticketID.String(),
			TargetName: view.TicketNumber,
			Metadata:   map[string]any{"file_name": fileName, "size": attachment.Size},
		})
	})
	if err != nil {
		if derr := s.blob.Delete(ctx, attachment.StorageKey); derr != nil {
			s.log.Warn("failed to remove attachment blob", zap.String("key", attachment.StorageKey), zap.Error(derr))
		}
		if !isClientError(err) {
			s.log.Error("failed to record attachment", zap.String("ticket_id", id), zap.Error(err))
		}
		return nil, err
	}

	resp := toAttachmentResponse(attachment)
	return &resp, nil
}

func (s *Service) OpenAttachment(ctx context.Context, id string, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	ticketID, err := parseID(id)
	if err != nil {
		return nil, nil, err
	}
	attID, err := parseID(attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.visible(ctx, s.db, ticketID); err != nil {
		return nil, nil, err
	}

	attachment, err := s.repo.FindAttachment(ctx, s.db, ticketID, attID)
	if err != nil {
		return nil, nil, err
	}
	if attachment == nil {
		return nil, nil, domain.ErrNotFound
	}
	_, body, err := s.blob.Get(ctx, attachment.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	return attachment, body, nil
}

// visible loads a ticket the caller may see. Viewers only see their own; any
// other ticket reports not found.
func (s *Service) visible(ctx context.Context, conn *gorm.DB, ticketID snowflake.ID) (*domain.TicketView, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	view, err := s.repo.FindByID(ctx, conn, ticketID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, domain.ErrNotFound
	}
	if caller.Role == identity.RoleViewer && view.RequesterID != caller.ID {
		return nil, domain.ErrNotFound
	}
	return view, nil
}

func (s *Service) ensureAssignee(ctx context.Context, tx *gorm.DB, assigneeID *snowflake.ID) error {
	if assigneeID == nil {
		return nil
	}
	ok, err := s.repo.UserExists(ctx, tx, *assigneeID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidAssignee
	}
	return nil
}

// resolvedAt stamps the first move into resolved and clears the stamp when a
// ticket is reopened.
func resolvedAt(from, to string, current *time.Time, now time.Time) *time.Time {
	switch to {
	case domain.StatusResolved:
		if from != domain.StatusResolved || current == nil {
			return &now
		}
		return current
	case domain.StatusClosed:
		return current
	default:
		return nil
	}
}

func parseEnum(value *string, def string, allowed []string, invalid error) (string, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return def, nil
	}
	v := strings.ToLower(strings.TrimSpace(*value))
	if !slices.Contains(allowed, v) {
		return "", invalid
	}
	return v, nil
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func parseOptionalID(value *string, invalid error) (*snowflake.ID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(strings.TrimSpace(*value))
	if err != nil || parsed == 0 {
		return nil, invalid
	}
	return &parsed, nil
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' {
			return -1
		}
		return r
	}, name)
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidAssignee) ||
		errors.Is(err, domain.ErrUnauthenticated)
}

func toResponse(v *domain.TicketView) domain.TicketResponse {
	resp := domain.TicketResponse{
		ID:            v.ID.String(),
		TicketNumber:  v.TicketNumber,
		Title:         v.Title,
		Description:   v.Description,
		Category:      v.Category,
		Priority:      v.Priority,
		Status:        v.Status,
		RequesterID:   v.RequesterID.String(),
		RequesterName: v.RequesterName,
		AssigneeName:  v.AssigneeName,
		ResolvedAt:    v.ResolvedAt,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
	if v.AssigneeID != nil {
		assignee := v.AssigneeID.String()
		resp.AssigneeID = &assignee
	}
	return resp
}

func toCommentResponse(c domain.CommentView) domain.CommentResponse {
	return domain.CommentResponse{
		ID:         c.ID.String(),
		AuthorID:   c.AuthorID.String(),
		AuthorName: c.AuthorName,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
	}
}

func toAttachmentResponse(a domain.Attachment) domain.AttachmentResponse {
	return domain.AttachmentResponse{
		ID:          a.ID.String(),
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
		UploadedBy:  a.UploadedBy.String(),
		CreatedAt:   a.CreatedAt,
	}
}
