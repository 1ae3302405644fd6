// Package scheduler runs periodic housekeeping against the shared store.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	obscontext "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/context"
	obslogger "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/logger"
	obsmetrics "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/metrics"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
	Locker   *ratelimit.Locker   `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Config   Config              `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
	locker   *ratelimit.Locker
	metrics  *obsmetrics.Metrics
}

type job struct {
	name string
	run  func(ctx context.Context) (int64, error)
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.AuditSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		locker:   p.Locker,
		metrics:  p.Metrics,
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: "expire_feedback_links", run: s.ExpireFeedbackLinksJob},
		{name: "prune_ticket_sequences", run: s.PruneTicketSequencesJob},
	}
}

// RunOnce executes every job a single time. Errors are joined so one failing
// job does not starve the others.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		err = errors.Join(err, s.runJob(parent, j))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, j job) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	runID := s.genID.Generate().String()
	ctx = obscontext.WithActorID(ctx, "scheduler")
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("job", j.name),
		zap.String("run_id", runID),
	)

	release, acquired, err := s.acquire(ctx, j.name)
	if err != nil {
		log.Warn("job lock unavailable", zap.Error(err))
		s.metrics.RecordJobRun(ctx, j.name, "error", s.clock.Now().Sub(start))
		return nil
	}
	if !acquired {
		log.Debug("job held by another replica")
		s.metrics.RecordJobRun(ctx, j.name, "skipped", s.clock.Now().Sub(start))
		return nil
	}
	defer release()

	affected, err := j.run(ctx)
	elapsed := s.clock.Now().Sub(start)
	if err == nil {
		s.metrics.RecordJobRun(ctx, j.name, "ok", elapsed)
		if affected > 0 {
			log.Info("job finished", zap.Int64("affected", affected), zap.Duration("elapsed", elapsed))
		}
		return nil
	}

	// deadline is a soft timeout; the next tick picks the work up again
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordJobRun(ctx, j.name, "timeout", elapsed)
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	s.metrics.RecordJobRun(ctx, j.name, "error", elapsed)
	return fmt.Errorf("%s: %w", j.name, err)
}

// acquire takes the per-job redis lock. Without redis the single process owns
// every job.
func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	key := "scheduler:" + name
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			s.log.Warn("release job lock failed", zap.String("job", name), zap.Error(err))
		}
	}, true, nil
}
