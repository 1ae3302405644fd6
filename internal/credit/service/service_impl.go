package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/statement"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/datefield"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	blockTarget = "credit_block"
	entryTarget = "consultancy_log_entry"
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
	Renderer statement.Renderer     `optional:"true"`
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
	auditSvc  auditdomain.Service
	renderer  statement.Renderer
	settings  *config.SettingsHolder
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	renderer := p.Renderer
	if renderer == nil {
		renderer = statement.New()
	}
	return &Service{
		db:        p.DB,
		txTimeout: p.DBConfig.StatementTimeout,
		log:       p.Log.Named("credit.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		auditSvc:  p.AuditSvc,
		renderer:  renderer,
		settings:  p.Settings,
		metrics:   p.Metrics,
	}
}

func (s *Service) ListBlocks(ctx context.Context) ([]domain.BlockResponse, error) {
	rows, err := s.repo.ListBlocks(ctx, s.db)
	if err != nil {
		s.log.Error("failed to list credit blocks", zap.Error(err))
		return nil, err
	}
	out := make([]domain.BlockResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toBlockResponse(&rows[i]))
	}
	return out, nil
}

func (s *Service) GetBlock(ctx context.Context, id string) (*domain.BlockResponse, error) {
	blockID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindBlock(ctx, s.db, blockID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	resp := toBlockResponse(row)
	return &resp, nil
}

func (s *Service) CreateBlock(ctx context.Context, req domain.CreateBlockRequest) (*domain.BlockResponse, error) {
	block, err := validateBlock(req.BlockFields)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	block.ID = s.genID.Generate()
	block.CreatedBy = identity.ActorID(ctx)
	block.CreatedAt = now
	block.UpdatedAt = now

	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		if err := s.repo.InsertBlock(ctx, tx, block); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAddEntry,
			TargetType: blockTarget,
			TargetID:   block.ID.String(),
			TargetName: block.Reference,
			Metadata:   map[string]any{"credits": block.Credits},
		})
	})
	if err != nil {
		s.log.Error("failed to create credit block", zap.Error(err))
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, blockTarget, auditdomain.ActionAddEntry)
	resp := toBlockResponse(block)
	return &resp, nil
}

func (s *Service) UpdateBlock(ctx context.Context, id string, req domain.UpdateBlockRequest) (*domain.BlockResponse, error) {
	blockID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	block, err := validateBlock(req.BlockFields)
	if err != nil {
		return nil, err
	}
	block.ID = blockID
	block.UpdatedAt = s.clock.Now().UTC()

	var resp domain.BlockResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		ok, err := s.repo.UpdateBlock(ctx, tx, block)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdateEntry,
			TargetType: blockTarget,
			TargetID:   blockID.String(),
			TargetName: block.Reference,
			Metadata:   map[string]any{"credits": block.Credits, "active": block.Active},
		}); err != nil {
			return err
		}
		stored, err := s.repo.FindBlock(ctx, tx, blockID)
		if err != nil {
			return err
		}
		resp = toBlockResponse(stored)
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to update credit block", zap.String("block_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, blockTarget, auditdomain.ActionUpdateEntry)
	return &resp, nil
}

func (s *Service) DeleteBlock(ctx context.Context, id string) error {
	blockID, err := parseID(id)
	if err != nil {
		return err
	}
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		existing, err := s.repo.FindBlock(ctx, tx, blockID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if _, err := s.repo.DeleteBlock(ctx, tx, blockID); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionDeleteEntry,
			TargetType: blockTarget,
			TargetID:   blockID.String(),
			TargetName: existing.Reference,
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to delete credit block", zap.String("block_id", id), zap.Error(err))
		}
		return err
	}
	s.metrics.RecordEntityWrite(ctx, blockTarget, auditdomain.ActionDeleteEntry)
	return nil
}

func (s *Service) ListEntries(ctx context.Context, req domain.ListEntryRequest) ([]domain.EntryResponse, error) {
	from, err := datefield.Parse(req.From)
	if err != nil {
		return nil, domain.ErrInvalidDateRange
	}
	to, err := datefield.Parse(req.To)
	if err != nil {
		return nil, domain.ErrInvalidDateRange
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.ErrInvalidDateRange
	}

	rows, err := s.repo.ListEntries(ctx, s.db, domain.EntryFilter{From: from, To: to, Consultant: req.Consultant})
	if err != nil {
		s.log.Error("failed to list consultancy log", zap.Error(err))
		return nil, err
	}
	out := make([]domain.EntryResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toEntryResponse(&rows[i]))
	}
	return out, nil
}

func (s *Service) GetEntry(ctx context.Context, id string) (*domain.EntryResponse, error) {
	entryID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindEntry(ctx, s.db, entryID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	resp := toEntryResponse(row)
	return &resp, nil
}

func (s *Service) CreateEntry(ctx context.Context, req domain.CreateEntryRequest) (*domain.EntryResponse, error) {
	entry, err := validateEntry(req.EntryFields)
	if err != nil {
		return nil, err
	}
	s.stampNew(ctx, entry)

	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		if err := s.repo.InsertEntry(ctx, tx, entry); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAddEntry,
			TargetType: entryTarget,
			TargetID:   entry.ID.String(),
			TargetName: entry.Consultant,
			Metadata:   map[string]any{"credits_consumed": entry.CreditsConsumed},
		})
	})
	if err != nil {
		s.log.Error("failed to create consultancy log entry", zap.Error(err))
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, entryTarget, auditdomain.ActionAddEntry)
	resp := toEntryResponse(entry)
	return &resp, nil
}

func (s *Service) UpdateEntry(ctx context.Context, id string, req domain.UpdateEntryRequest) (*domain.EntryResponse, error) {
	entryID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	entry, err := validateEntry(req.EntryFields)
	if err != nil {
		return nil, err
	}
	entry.ID = entryID
	entry.UpdatedAt = s.clock.Now().UTC()

	var resp domain.EntryResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		ok, err := s.repo.UpdateEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdateEntry,
			TargetType: entryTarget,
			TargetID:   entryID.String(),
			TargetName: entry.Consultant,
			Metadata:   map[string]any{"credits_consumed": entry.CreditsConsumed},
		}); err != nil {
			return err
		}
		stored, err := s.repo.FindEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		resp = toEntryResponse(stored)
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to update consultancy log entry", zap.String("entry_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, entryTarget, auditdomain.ActionUpdateEntry)
	return &resp, nil
}

func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	entryID, err := parseID(id)
	if err != nil {
		return err
	}
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		existing, err := s.repo.FindEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if _, err := s.repo.DeleteEntry(ctx, tx, entryID); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionDeleteEntry,
			TargetType: entryTarget,
			TargetID:   entryID.String(),
			TargetName: existing.Consultant,
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to delete consultancy log entry", zap.String("entry_id", id), zap.Error(err))
		}
		return err
	}
	s.metrics.RecordEntityWrite(ctx, entryTarget, auditdomain.ActionDeleteEntry)
	return nil
}

// ImportEntries writes each record in its own transaction. A bad record is
// logged with the batch id and skipped; it never aborts the batch. When ctx
// ends mid-batch the loop stops and the summary audit row is still written
// for the records already committed.
func (s *Service) ImportEntries(ctx context.Context, req domain.ImportEntriesRequest) (*domain.ImportResult, error) {
	if len(req.Entries) == 0 || len(req.Entries) > domain.MaxImportEntries {
		return nil, domain.ErrInvalidImport
	}

	batchID := ulid.Make().String()
	log := s.log.With(zap.String("batch_id", batchID))
	result := &domain.ImportResult{BatchID: batchID, Failed: []domain.ImportFailure{}}

	for i, fields := range req.Entries {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		entry, err := validateEntry(fields)
		if err == nil {
			s.stampNew(ctx, entry)
			entry.ImportBatch = &batchID
			err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
				return s.repo.InsertEntry(ctx, tx, entry)
			})
		}
		if err != nil && ctx.Err() != nil {
			result.Interrupted = true
			break
		}
		if err != nil {
			log.Warn("skipping import record", zap.Int("index", i), zap.Error(err))
			s.metrics.RecordImportFailure(ctx, entryTarget)
			result.Failed = append(result.Failed, domain.ImportFailure{Index: i, Error: importError(err)})
			continue
		}
		result.Imported++
	}

	if result.Interrupted {
		log.Warn("consultancy log import interrupted",
			zap.Int("imported", result.Imported),
			zap.Int("total", len(req.Entries)),
			zap.Error(ctx.Err()),
		)
	} else {
		log.Info("consultancy log import finished",
			zap.Int("imported", result.Imported),
			zap.Int("failed", len(result.Failed)),
		)
	}
	s.auditSvc.Record(context.WithoutCancel(ctx), auditdomain.Entry{
		Action:     auditdomain.ActionImportEntries,
		TargetType: entryTarget,
		TargetID:   batchID,
		Detail:     fmt.Sprintf("imported %d of %d records", result.Imported, len(req.Entries)),
		Metadata: map[string]any{
			"imported":    result.Imported,
			"failed":      len(result.Failed),
			"interrupted": result.Interrupted,
		},
	})
	return result, nil
}

func (s *Service) Summary(ctx context.Context) (*domain.Summary, error) {
	totals, err := s.repo.Totals(ctx, s.db)
	if err != nil {
		s.log.Error("failed to total credits", zap.Error(err))
		return nil, err
	}
	summary := summarize(totals, s.settings.Get().CreditLowBalance)
	return &summary, nil
}

func (s *Service) Statement(ctx context.Context) ([]byte, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	blocks, err := s.repo.ListBlocks(ctx, s.db)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, s.db, domain.EntryFilter{})
	if err != nil {
		return nil, err
	}

	data := statement.Data{
		GeneratedAt:     s.clock.Now(),
		TotalPurchased:  summary.TotalPurchased,
		ActivePurchased: summary.ActivePurchased,
		TotalConsumed:   summary.TotalConsumed,
		Remaining:       summary.Remaining,
		Overdrawn:       summary.Overdrawn,
		Blocks:          make([]statement.Block, 0, len(blocks)),
		Entries:         make([]statement.Entry, 0, len(entries)),
	}
	for _, b := range blocks {
		data.Blocks = append(data.Blocks, statement.Block{
			Reference:    b.Reference,
			PurchaseDate: b.PurchaseDate.UTC().Format(datefield.DateLayout),
			Credits:      b.Credits,
			Active:       b.Active,
		})
	}
	for _, e := range entries {
		ticket := ""
		if e.TicketNumber != nil {
			ticket = *e.TicketNumber
		}
		data.Entries = append(data.Entries, statement.Entry{
			WorkDate:        e.WorkDate.UTC().Format(datefield.DateLayout),
			Consultant:      e.Consultant,
			Description:     e.Description,
			TicketNumber:    ticket,
			CreditsConsumed: e.CreditsConsumed,
		})
	}

	doc, err := s.renderer.Render(ctx, data)
	if err != nil {
		s.log.Error("failed to render credit statement", zap.Error(err))
		return nil, err
	}
	return io.ReadAll(doc)
}

func (s *Service) stampNew(ctx context.Context, entry *domain.LogEntry) {
	now := s.clock.Now().UTC()
	entry.ID = s.genID.Generate()
	entry.CreatedBy = identity.ActorID(ctx)
	entry.CreatedAt = now
	entry.UpdatedAt = now
}

func summarize(t domain.Totals, lowBalance float64) domain.Summary {
	remaining := t.TotalPurchased - t.TotalConsumed
	return domain.Summary{
		TotalPurchased:  t.TotalPurchased,
		ActivePurchased: t.ActivePurchased,
		TotalConsumed:   t.TotalConsumed,
		Remaining:       remaining,
		Overdrawn:       remaining < 0,
		LowBalance:      remaining < lowBalance,
	}
}

func validateBlock(in domain.BlockFields) (*domain.Block, error) {
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		return nil, domain.ErrInvalidReference
	}
	if in.Credits <= 0 {
		return nil, domain.ErrInvalidCredits
	}
	purchased, err := datefield.Required(in.PurchaseDate)
	if err != nil {
		return nil, domain.ErrInvalidPurchaseDate
	}
	if in.Cost != nil && *in.Cost < 0 {
		return nil, domain.ErrInvalidCost
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return &domain.Block{
		Reference:    reference,
		Credits:      in.Credits,
		PurchaseDate: purchased,
		Cost:         in.Cost,
		Active:       active,
		Notes:        in.Notes,
	}, nil
}

func validateEntry(in domain.EntryFields) (*domain.LogEntry, error) {
	workDate, err := datefield.Required(in.WorkDate)
	if err != nil {
		return nil, domain.ErrInvalidWorkDate
	}
	consultant := strings.TrimSpace(in.Consultant)
	if consultant == "" {
		return nil, domain.ErrInvalidConsultant
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, domain.ErrInvalidDescription
	}
	if in.CreditsConsumed == nil || *in.CreditsConsumed < 0 {
		return nil, domain.ErrInvalidCreditsConsumed
	}
	return &domain.LogEntry{
		WorkDate:        workDate,
		Consultant:      consultant,
		Description:     description,
		CreditsConsumed: *in.CreditsConsumed,
		TicketNumber:    in.TicketNumber,
		Notes:           in.Notes,
	}, nil
}

// importError keeps validation codes and hides infrastructure detail from the
// import response.
func importError(err error) string {
	for _, known := range []error{
		domain.ErrInvalidWorkDate,
		domain.ErrInvalidConsultant,
		domain.ErrInvalidDescription,
		domain.ErrInvalidCreditsConsumed,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "write_failed"
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func toBlockResponse(b *domain.Block) domain.BlockResponse {
	return domain.BlockResponse{
		ID:           b.ID.String(),
		Reference:    b.Reference,
		Credits:      b.Credits,
		PurchaseDate: b.PurchaseDate.UTC().Format(datefield.DateLayout),
		Cost:         b.Cost,
		Active:       b.Active,
		Notes:        b.Notes,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func toEntryResponse(e *domain.LogEntry) domain.EntryResponse {
	return domain.EntryResponse{
		ID:              e.ID.String(),
		WorkDate:        e.WorkDate.UTC().Format(datefield.DateLayout),
		Consultant:      e.Consultant,
		Description:     e.Description,
		CreditsConsumed: e.CreditsConsumed,
		TicketNumber:    db.StringPtr(db.NullString(e.TicketNumber)),
		Notes:           db.StringPtr(db.NullRawString(e.Notes)),
		ImportBatch:     e.ImportBatch,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}
