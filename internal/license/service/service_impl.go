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
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/license/domain"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/datefield"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const targetType = "license"

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
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		txTimeout: p.DBConfig.StatementTimeout,
		log:       p.Log.Named("license.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}
}

// validated is a request whose dates and numbers already passed checks, so
// the transaction never starts for a bad payload.
type validated struct {
	license domain.License
	addons  []domain.Addon
}

func (s *Service) List(ctx context.Context, req domain.ListLicenseRequest) ([]domain.LicenseResponse, error) {
	filter := domain.ListFilter{Search: req.Search, Active: req.Active}
	now := s.clock.Now().UTC()
	if req.ExpiringWithinDays != nil {
		if *req.ExpiringWithinDays < 0 {
			return nil, domain.ErrInvalidFilter
		}
		by := now.AddDate(0, 0, *req.ExpiringWithinDays)
		filter.ExpiringBy = &by
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		s.log.Error("failed to list licenses", zap.Error(err))
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	addons, err := s.repo.ListAddons(ctx, s.db, ids)
	if err != nil {
		s.log.Error("failed to load license addons", zap.Error(err))
		return nil, err
	}

	out := make([]domain.LicenseResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i], addons[rows[i].ID], now))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.LicenseResponse, error) {
	licenseID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, licenseID)
}

func (s *Service) Create(ctx context.Context, req domain.CreateLicenseRequest) (*domain.LicenseResponse, error) {
	v, err := validate(req.LicenseFields)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	v.license.ID = s.genID.Generate()
	v.license.CreatedBy = identity.ActorID(ctx)
	v.license.CreatedAt = now
	v.license.UpdatedAt = now
	assignAddonIDs(v.license.ID, v.addons)

	var resp *domain.LicenseResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &v.license); err != nil {
			return err
		}
		if err := s.repo.ReplaceAddons(ctx, tx, v.license.ID, v.addons); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAddEntry,
			TargetType: targetType,
			TargetID:   v.license.ID.String(),
			TargetName: v.license.Name,
			Metadata:   map[string]any{"addons": len(v.addons)},
		}); err != nil {
			return err
		}
		loaded, err := s.load(ctx, tx, v.license.ID)
		resp = loaded
		return err
	})
	if err != nil {
		s.log.Error("failed to create license", zap.Error(err))
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, targetType, auditdomain.ActionAddEntry)
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateLicenseRequest) (*domain.LicenseResponse, error) {
	licenseID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	v, err := validate(req.LicenseFields)
	if err != nil {
		return nil, err
	}

	v.license.ID = licenseID
	v.license.UpdatedAt = s.clock.Now().UTC()
	assignAddonIDs(licenseID, v.addons)

	var resp *domain.LicenseResponse
	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		ok, err := s.repo.Update(ctx, tx, &v.license)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if err := s.repo.ReplaceAddons(ctx, tx, licenseID, v.addons); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdateEntry,
			TargetType: targetType,
			TargetID:   licenseID.String(),
			TargetName: v.license.Name,
			Metadata:   map[string]any{"addons": len(v.addons)},
		}); err != nil {
			return err
		}
		loaded, err := s.load(ctx, tx, licenseID)
		resp = loaded
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to update license", zap.String("license_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordEntityWrite(ctx, targetType, auditdomain.ActionUpdateEntry)
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	licenseID, err := parseID(id)
	if err != nil {
		return err
	}

	err = db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, licenseID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if _, err := s.repo.Delete(ctx, tx, licenseID); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionDeleteEntry,
			TargetType: targetType,
			TargetID:   licenseID.String(),
			TargetName: existing.Name,
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to delete license", zap.String("license_id", id), zap.Error(err))
		}
		return err
	}

	s.metrics.RecordEntityWrite(ctx, targetType, auditdomain.ActionDeleteEntry)
	return nil
}

func (s *Service) load(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.LicenseResponse, error) {
	row, err := s.repo.FindByID(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	addons, err := s.repo.ListAddons(ctx, conn, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	resp := toResponse(row, addons[id], s.clock.Now().UTC())
	return &resp, nil
}

func validate(in domain.LicenseFields) (*validated, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	key := strings.TrimSpace(in.LicenseKey)
	if key == "" {
		return nil, domain.ErrInvalidLicenseKey
	}
	if in.Seats != nil && *in.Seats < 0 {
		return nil, domain.ErrInvalidSeats
	}
	if in.SeatsUsed != nil && *in.SeatsUsed < 0 {
		return nil, domain.ErrInvalidSeats
	}
	if in.Cost != nil && *in.Cost < 0 {
		return nil, domain.ErrInvalidCost
	}
	purchase, err := datefield.Parse(in.PurchaseDate)
	if err != nil {
		return nil, domain.ErrInvalidPurchaseDate
	}
	expiry, err := datefield.Parse(in.ExpiryDate)
	if err != nil {
		return nil, domain.ErrInvalidExpiryDate
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	out := &validated{
		license: domain.License{
			Name:         name,
			LicenseKey:   key,
			Vendor:       in.Vendor,
			Seats:        in.Seats,
			SeatsUsed:    in.SeatsUsed,
			PurchaseDate: purchase,
			ExpiryDate:   expiry,
			Cost:         in.Cost,
			AssignedTo:   in.AssignedTo,
			Notes:        in.Notes,
			Active:       active,
		},
		addons: make([]domain.Addon, 0, len(in.Addons)),
	}

	for i, addon := range in.Addons {
		addonName := strings.TrimSpace(addon.Name)
		if addonName == "" {
			return nil, domain.ErrInvalidAddon
		}
		if addon.Cost != nil && *addon.Cost < 0 {
			return nil, domain.ErrInvalidAddon
		}
		addonExpiry, err := datefield.Parse(addon.ExpiryDate)
		if err != nil {
			return nil, domain.ErrInvalidAddon
		}
		out.addons = append(out.addons, domain.Addon{
			Position:   i,
			Name:       addonName,
			LicenseKey: db.StringPtr(db.NullString(addon.LicenseKey)),
			Cost:       addon.Cost,
			ExpiryDate: addonExpiry,
		})
	}
	return out, nil
}

func assignAddonIDs(licenseID snowflake.ID, addons []domain.Addon) {
	for i := range addons {
		addons[i].ID = db.ChildID(licenseID, addons[i].Position)
		addons[i].LicenseID = licenseID
	}
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func toResponse(row *domain.License, addons []domain.Addon, now time.Time) domain.LicenseResponse {
	resp := domain.LicenseResponse{
		ID:           row.ID.String(),
		Name:         row.Name,
		LicenseKey:   row.LicenseKey,
		Vendor:       row.Vendor,
		Seats:        row.Seats,
		SeatsUsed:    row.SeatsUsed,
		PurchaseDate: datefield.Format(row.PurchaseDate),
		ExpiryDate:   datefield.Format(row.ExpiryDate),
		Cost:         row.Cost,
		AssignedTo:   row.AssignedTo,
		Notes:        row.Notes,
		Active:       row.Active,
		Addons:       make([]domain.AddonResponse, 0, len(addons)),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.ExpiryDate != nil {
		days := datefield.DaysUntil(now, *row.ExpiryDate)
		resp.DaysToExpiry = &days
		resp.Expired = days < 0
	}
	for _, addon := range addons {
		resp.Addons = append(resp.Addons, domain.AddonResponse{
			ID:         addon.ID,
			Name:       addon.Name,
			LicenseKey: addon.LicenseKey,
			Cost:       addon.Cost,
			ExpiryDate: datefield.Format(addon.ExpiryDate),
		})
	}
	return resp
}
