package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/domain"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/datefield"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const targetType = "it_check"

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
		log:       p.Log.Named("itcheck.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}
}

type validated struct {
	entry      domain.Entry
	speedTests []domain.SpeedTest
	apps       []domain.InstalledApp
}

func (s *Service) List(ctx context.Context, req domain.ListEntryRequest) ([]domain.EntryResponse, error) {
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "" && !slices.Contains(domain.Statuses, status) {
		return nil, domain.ErrInvalidStatus
	}

	rows, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status:     status,
		Department: strings.TrimSpace(req.Department),
		Search:     req.Search,
	})
	if err != nil {
		s.log.Error("failed to list it checks", zap.Error(err))
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	speedTests, err := s.repo.ListSpeedTests(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	apps, err := s.repo.ListInstalledApps(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.EntryResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i], speedTests[rows[i].ID], apps[rows[i].ID]))
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
	v, err := validate(req.EntryFields)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	v.entry.ID = s.genID.Generate()
	v.entry.CreatedBy = identity.ActorID(ctx)
	v.entry.CreatedAt = now
	v.entry.UpdatedAt = now

	resp, err := s.write(ctx, v, auditdomain.ActionAddEntry, func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &v.entry)
	})
	if err != nil {
		s.log.Error("failed to create it check", zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateEntryRequest) (*domain.EntryResponse, error) {
	entryID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	v, err := validate(req.EntryFields)
	if err != nil {
		return nil, err
	}
	v.entry.ID = entryID
	v.entry.UpdatedAt = s.clock.Now().UTC()

	resp, err := s.write(ctx, v, auditdomain.ActionUpdateEntry, func(tx *gorm.DB) error {
		ok, err := s.repo.Update(ctx, tx, &v.entry)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to update it check", zap.String("entry_id", id), zap.Error(err))
		}
		return nil, err
	}
	return resp, nil
}

// write runs the shared writer sequence: root statement, dependents replaced
// in payload order, then one audit row, all on the same transaction.
func (s *Service) write(ctx context.Context, v *validated, action string, root func(tx *gorm.DB) error) (*domain.EntryResponse, error) {
	for i := range v.speedTests {
		v.speedTests[i].ID = db.ChildID(v.entry.ID, v.speedTests[i].Position)
		v.speedTests[i].EntryID = v.entry.ID
	}
	for i := range v.apps {
		v.apps[i].ID = db.ChildID(v.entry.ID, v.apps[i].Position)
		v.apps[i].EntryID = v.entry.ID
	}

	var resp *domain.EntryResponse
	err := db.Transaction(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		if err := root(tx); err != nil {
			return err
		}
		if err := s.repo.ReplaceSpeedTests(ctx, tx, v.entry.ID, v.speedTests); err != nil {
			return err
		}
		if err := s.repo.ReplaceInstalledApps(ctx, tx, v.entry.ID, v.apps); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     action,
			TargetType: targetType,
			TargetID:   v.entry.ID.String(),
			TargetName: v.entry.DeviceName,
			Metadata: map[string]any{
				"status":         v.entry.Status,
				"speed_tests":    len(v.speedTests),
				"installed_apps": len(v.apps),
			},
		}); err != nil {
			return err
		}
		loaded, err := s.load(ctx, tx, v.entry.ID)
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
			TargetName: existing.DeviceName,
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to delete it check", zap.String("entry_id", id), zap.Error(err))
		}
		return err
	}

	s.metrics.RecordEntityWrite(ctx, targetType, auditdomain.ActionDeleteEntry)
	return nil
}

func (s *Service) load(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.EntryResponse, error) {
	row, err := s.repo.FindByID(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	ids := []snowflake.ID{id}
	speedTests, err := s.repo.ListSpeedTests(ctx, conn, ids)
	if err != nil {
		return nil, err
	}
	apps, err := s.repo.ListInstalledApps(ctx, conn, ids)
	if err != nil {
		return nil, err
	}
	resp := toResponse(row, speedTests[id], apps[id])
	return &resp, nil
}

func validate(in domain.EntryFields) (*validated, error) {
	deviceName := strings.TrimSpace(in.DeviceName)
	if deviceName == "" {
		return nil, domain.ErrInvalidDeviceName
	}
	assignedTo := strings.TrimSpace(in.AssignedTo)
	if assignedTo == "" {
		return nil, domain.ErrInvalidAssignedTo
	}

	status := domain.StatusOK
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		status = strings.ToLower(strings.TrimSpace(*in.Status))
		if !slices.Contains(domain.Statuses, status) {
			return nil, domain.ErrInvalidStatus
		}
	}
	if (in.RAMGB != nil && *in.RAMGB < 0) || (in.StorageGB != nil && *in.StorageGB < 0) {
		return nil, domain.ErrInvalidCapacity
	}
	lastChecked, err := datefield.Parse(in.LastCheckedAt)
	if err != nil {
		return nil, domain.ErrInvalidLastCheckedAt
	}

	out := &validated{
		entry: domain.Entry{
			DeviceName:      deviceName,
			AssignedTo:      assignedTo,
			Department:      in.Department,
			Location:        in.Location,
			DeviceType:      in.DeviceType,
			SerialNumber:    in.SerialNumber,
			OS:              in.OS,
			CPU:             in.CPU,
			RAMGB:           in.RAMGB,
			StorageGB:       in.StorageGB,
			AntivirusStatus: in.AntivirusStatus,
			LastCheckedAt:   lastChecked,
			Status:          status,
			Notes:           in.Notes,
		},
		speedTests: make([]domain.SpeedTest, 0, len(in.SpeedTests)),
		apps:       make([]domain.InstalledApp, 0, len(in.InstalledApps)),
	}
	if len(in.Hardware) > 0 {
		out.entry.Hardware = datatypes.JSONMap(in.Hardware)
	}

	for i, st := range in.SpeedTests {
		if negative(st.DownloadMbps) || negative(st.UploadMbps) || negative(st.PingMs) {
			return nil, domain.ErrInvalidSpeedTest
		}
		testedAt, err := datefield.Parse(st.TestedAt)
		if err != nil {
			return nil, domain.ErrInvalidSpeedTest
		}
		out.speedTests = append(out.speedTests, domain.SpeedTest{
			Position:     i,
			DownloadMbps: st.DownloadMbps,
			UploadMbps:   st.UploadMbps,
			PingMs:       st.PingMs,
			TestedAt:     testedAt,
			Provider:     db.StringPtr(db.NullString(st.Provider)),
		})
	}
	for i, app := range in.InstalledApps {
		name := strings.TrimSpace(app.Name)
		if name == "" {
			return nil, domain.ErrInvalidInstalledApp
		}
		out.apps = append(out.apps, domain.InstalledApp{
			Position:  i,
			Name:      name,
			Version:   db.StringPtr(db.NullString(app.Version)),
			Publisher: db.StringPtr(db.NullString(app.Publisher)),
			Licensed:  app.Licensed,
		})
	}
	return out, nil
}

func negative(v *float64) bool {
	return v != nil && *v < 0
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func toResponse(row *domain.Entry, speedTests []domain.SpeedTest, apps []domain.InstalledApp) domain.EntryResponse {
	resp := domain.EntryResponse{
		ID:              row.ID.String(),
		DeviceName:      row.DeviceName,
		AssignedTo:      row.AssignedTo,
		Department:      row.Department,
		Location:        row.Location,
		DeviceType:      row.DeviceType,
		SerialNumber:    row.SerialNumber,
		OS:              row.OS,
		CPU:             row.CPU,
		RAMGB:           row.RAMGB,
		StorageGB:       row.StorageGB,
		AntivirusStatus: row.AntivirusStatus,
		LastCheckedAt:   row.LastCheckedAt,
		Status:          row.Status,
		Notes:           row.Notes,
		Hardware:        map[string]any(row.Hardware),
		SpeedTests:      make([]domain.SpeedTestResponse, 0, len(speedTests)),
		InstalledApps:   make([]domain.InstalledAppResponse, 0, len(apps)),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	for _, st := range speedTests {
		var testedAt *string
		if st.TestedAt != nil {
			formatted := st.TestedAt.UTC().Format(time.RFC3339)
			testedAt = &formatted
		}
		resp.SpeedTests = append(resp.SpeedTests, domain.SpeedTestResponse{
			ID:           st.ID,
			DownloadMbps: st.DownloadMbps,
			UploadMbps:   st.UploadMbps,
			PingMs:       st.PingMs,
			TestedAt:     testedAt,
			Provider:     st.Provider,
		})
	}
	for _, app := range apps {
		resp.InstalledApps = append(resp.InstalledApps, domain.InstalledAppResponse{
			ID:        app.ID,
			Name:      app.Name,
			Version:   app.Version,
			Publisher: app.Publisher,
			Licensed:  app.Licensed,
		})
	}
	return resp
}
