package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/masking"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	obscontext "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/context"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     auditdomain.Repository
	Settings *config.SettingsHolder `optional:"true"`
	Metrics  *obsmetrics.Metrics    `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     auditdomain.Repository
	settings *config.SettingsHolder
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("audit.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		settings: p.Settings,
		metrics:  p.Metrics,
	}
}

func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	row, err := s.build(ctx, entry)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, tx, row); err != nil {
		return err
	}
	s.metrics.RecordAuditWrite(ctx, row.Action)
	return nil
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) {
	row, err := s.build(ctx, entry)
	if err != nil {
		s.log.Warn("skipping invalid audit entry", zap.Error(err))
		return
	}
	if err := s.repo.Insert(ctx, s.db, row); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", row.Action), zap.Error(err))
		return
	}
	s.metrics.RecordAuditWrite(ctx, row.Action)
}

// List returns the most recent window of the trail, never more rows than the
// configured cap.
func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) ([]auditdomain.AuditLogView, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return nil, auditdomain.ErrInvalidTimeRange
	}

	limit := s.settings.Get().AuditListCap
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}

	logs, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorID:    req.ActorID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []auditdomain.AuditLogView{}
	}
	return logs, nil
}

func (s *Service) build(ctx context.Context, entry auditdomain.Entry) (*auditdomain.AuditLog, error) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return nil, auditdomain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorID := entry.ActorID
	if actorID == nil {
		actorID = identity.ActorID(ctx)
	}

	payload := masking.MaskSensitive(entry.Metadata)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		if payload == nil {
			payload = map[string]any{}
		}
		payload["request_id"] = requestID
	}

	row := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   optional(entry.TargetID),
		TargetName: optional(entry.TargetName),
		Detail:     optional(entry.Detail),
		IPAddress:  optional(obscontext.IPAddressFromContext(ctx)),
		UserAgent:  optional(obscontext.UserAgentFromContext(ctx)),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if len(payload) > 0 {
		row.Metadata = datatypes.JSONMap(payload)
	}
	return row, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
