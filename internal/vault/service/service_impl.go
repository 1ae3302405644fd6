package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/crypto"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const targetType = "password_entry"

type Params struct {
	fx.In

	DB       *gorm.DB
	DBConfig db.Config `optional:"true"`
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Sealer   *crypto.Sealer
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
	sealer    *crypto.Sealer
	repo      domain.Repository
	auditSvc  auditdomain.Service
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		txTimeout: p.DBConfig.StatementTimeout,
		log:       p.Log.Named("vault.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		sealer:    p.Sealer,
		repo:      p.Repo,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListEntryRequest) ([]domain.EntryResponse, error) {
	rows, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Category: strings.TrimSpace(req.Category),
		Search:   req.Search,
	})
	if err != nil {
		s.log.Error("failed to list password entries", zap.Error(err))
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	fields, err := s.repo.ListCustomFields(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.EntryResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toMaskedResponse(&rows[i], fields[rows[i].ID]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.EntryResponse, error) {
	entryID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, entryID)
}

func (s *Service) Create(ctx context.Context, req domain.CreateEntryRequest) (*domain.EntryResponse, error) {
	if req.Password == "" {
		return nil, domain.ErrInvalidPassword
	}
	entry, fields, _, err := s.prepare(req.EntryFields)
	if err != nil {
		return nil, err
	}
	if err := s.sealPassword(entry, req.Password); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	entry.ID = s.genID.Generate()
	entry.CreatedBy = identity.ActorID(ctx)
	entry.CreatedAt = now
	entry.UpdatedAt = now

	resp, err := s.write(ctx, entry, fields, auditdomain.ActionAddEntry, func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, entry)
	})
	if err != nil {
		s.log.Error("failed to create password entry", zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateEntryRequest) (*domain.EntryResponse, error) {
	entryID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if req.Password != nil && *req.Password == "" {
		return nil, domain.ErrInvalidPassword
	}
	entry, fields, carried, err := s.prepare(req.EntryFields)
	if err != nil {
		return nil, err
	}
	keepPassword := req.Password == nil || *req.Password == domain.MaskedValue
	if !keepPassword {
		if err := s.sealPassword(entry, *req.Password); err != nil {
			return nil, err
		}
	}
	entry.ID = entryID
	entry.UpdatedAt = s.clock.Now().UTC()

	resp, err := s.write(ctx, entry, fields, auditdomain.ActionUpdateEntry, func(tx *gorm.DB) error {
		ok, err := s.repo.Update(ctx, tx, entry, keepPassword)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if len(carried) == 0 {
			return nil
		}
		existing, err := s.repo.ListCustomFields(ctx, tx, []snowflake.ID{entryID})
		if err != nil {
			return err
		}
		carryOverSecrets(fields, carried, existing[entryID])
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to update password entry", zap.String("entry_id", id), zap.Error(err))
		}
		return nil, err
	}
	return resp, nil
}

func (s *Service) write(ctx context.Context, entry *domain.Entry, fields []domain.CustomField, action string, root func(tx *gorm.DB) error) (*domain.EntryResponse, error) {
	for i := range fields {
		fields[i].ID = db.ChildID(entry.ID, fields[i].Position)
		fields[i].EntryID = entry.ID
	}

	var resp *domain.EntryResponse
	err := db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		if err := root(tx); err != nil {
			return err
		}
		if err := s.repo.ReplaceCustomFields(ctx, tx, entry.ID, fields); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     action,
			TargetType: targetType,
			TargetID:   entry.ID.String(),
			TargetName: entry.Title,
			Metadata:   map[string]any{"custom_fields": len(fields)},
		}); err != nil {
			return err
		}
		loaded, err := s.load(ctx, tx, entry.ID)
		resp = loaded
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, targetType, action)
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	entryID, err := parseID(id)
	if err != nil {
		return err
	}

	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if _, err := s.repo.Delete(ctx, tx, entryID); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionDeleteEntry,
			TargetType: targetType,
			TargetID:   entryID.String(),
			TargetName: existing.Title,
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to delete password entry", zap.String("entry_id", id), zap.Error(err))
		}
		return err
	}

	s.metrics.RecordEntityWrite(ctx, targetType, auditdomain.ActionDeleteEntry)
	return nil
}

// Reveal returns plaintext only after the reveal_password audit row commits.
func (s *Service) Reveal(ctx context.Context, id string) (*domain.RevealResponse, error) {
	entryID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var resp *domain.RevealResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		entry, err := s.repo.FindByID(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ErrNotFound
		}
		fields, err := s.repo.ListCustomFields(ctx, tx, []snowflake.ID{entryID})
		if err != nil {
			return err
		}

		password, err := s.sealer.Open(entry.PasswordCipher)
		if err != nil {
			return err
		}
		out := &domain.RevealResponse{
			ID:           entry.ID.String(),
			Password:     password,
			CustomFields: make([]domain.CustomFieldResponse, 0, len(fields[entryID])),
		}
		for _, field := range fields[entryID] {
			value := field.Value
			if field.Secret && field.Value != nil {
				plain, err := s.sealer.Open(*field.Value)
				if err != nil {
					return err
				}
				value = &plain
			}
			out.CustomFields = append(out.CustomFields, domain.CustomFieldResponse{
				ID:     field.ID,
				Label:  field.Label,
				Value:  value,
				Secret: field.Secret,
			})
		}

		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionRevealPassword,
			TargetType: targetType,
			TargetID:   entry.ID.String(),
			TargetName: entry.Title,
		}); err != nil {
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to reveal password entry", zap.String("entry_id", id), zap.Error(err))
		}
		return nil, err
	}
	return resp, nil
}

func (s *Service) load(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.EntryResponse, error) {
	row, err := s.repo.FindByID(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	fields, err := s.repo.ListCustomFields(ctx, conn, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	resp := toMaskedResponse(row, fields[id])
	return &resp, nil
}

// prepare validates the shared fields and seals secret custom values before
// any transaction begins. Secret fields without a new value are returned in
// carried, keyed by position, with the field ID the client sent.
func (s *Service) prepare(in domain.EntryFields) (*domain.Entry, []domain.CustomField, map[int]string, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, nil, nil, domain.ErrInvalidTitle
	}

	fields := make([]domain.CustomField, 0, len(in.CustomFields))
	carried := map[int]string{}
	for i, field := range in.CustomFields {
		label := strings.TrimSpace(field.Label)
		if label == "" {
			return nil, nil, nil, domain.ErrInvalidCustomField
		}
		value := db.StringPtr(db.NullRawString(field.Value))
		if field.Secret && (value == nil || *value == domain.MaskedValue) {
			carried[i] = strings.TrimSpace(field.ID)
			value = nil
		} else if field.Secret {
			sealed, err := s.sealer.Seal(*value)
			if err != nil {
				return nil, nil, nil, err
			}
			value = &sealed
		}
		fields = append(fields, domain.CustomField{
			Position: i,
			Label:    label,
			Value:    value,
			Secret:   field.Secret,
		})
	}

	return &domain.Entry{
		Title:    title,
		Username: in.Username,
		URL:      in.URL,
		Category: in.Category,
		Notes:    in.Notes,
	}, fields, carried, nil
}

// carryOverSecrets copies stored ciphertext into fields that kept their secret.
// A field matches by ID first and by position otherwise; a field with no
// stored secret counterpart stays NULL.
func carryOverSecrets(fields []domain.CustomField, carried map[int]string, existing []domain.CustomField) {
	byID := make(map[string]domain.CustomField, len(existing))
	byPosition := make(map[int]domain.CustomField, len(existing))
	for _, field := range existing {
		byID[field.ID] = field
		byPosition[field.Position] = field
	}
	for position, id := range carried {
		stored, ok := byID[id]
		if id == "" || !ok {
			stored, ok = byPosition[position]
		}
		if !ok || !stored.Secret || stored.Value == nil {
			continue
		}
		value := *stored.Value
		fields[position].Value = &value
	}
}

func (s *Service) sealPassword(entry *domain.Entry, password string) error {
	sealed, err := s.sealer.Seal(password)
	if err != nil {
		return err
	}
	entry.PasswordCipher = sealed
	entry.Strength = domain.Strength(password)
	return nil
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func toMaskedResponse(row *domain.Entry, fields []domain.CustomField) domain.EntryResponse {
	resp := domain.EntryResponse{
		ID:           row.ID.String(),
		Title:        row.Title,
		Username:     row.Username,
		Password:     domain.MaskedValue,
		URL:          row.URL,
		Category:     row.Category,
		Notes:        row.Notes,
		Strength:     row.Strength,
		CustomFields: make([]domain.CustomFieldResponse, 0, len(fields)),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	for _, field := range fields {
		value := field.Value
		if field.Secret && value != nil {
			masked := domain.MaskedValue
			value = &masked
		}
		resp.CustomFields = append(resp.CustomFields, domain.CustomFieldResponse{
			ID:     field.ID,
			Label:  field.Label,
			Value:  value,
			Secret: field.Secret,
		})
	}
	return resp
}
