package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	auditrepo "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/repository"
	auditservice "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/service"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	feedbackdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ratelimit"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/sequence"
	ticketdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestScheduler(t *testing.T, locker *ratelimit.Locker) (*Scheduler, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&auditdomain.AuditLog{},
		&ticketdomain.Ticket{},
		&feedbackdomain.Link{},
		&sequence.TicketSequence{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	audit := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
	sched, err := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		AuditSvc: audit,
		Locker:   locker,
		Config:   Config{SequenceRetentionDays: 30},
	})
	require.NoError(t, err)
	return sched, conn, clk
}

func insertLink(t *testing.T, conn *gorm.DB, id snowflake.ID, code string, active bool, expiresAt *time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&feedbackdomain.Link{
		ID:        id,
		Code:      code,
		Title:     code,
		Active:    active,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func activeCodes(t *testing.T, conn *gorm.DB) []string {
	t.Helper()
	var codes []string
	require.NoError(t, conn.Raw(`SELECT code FROM feedback_links WHERE active = ? ORDER BY code`, true).Scan(&codes).Error)
	return codes
}

func TestExpireFeedbackLinksJob(t *testing.T) {
	sched, conn, clk := newTestScheduler(t, nil)
	past := clk.Now().Add(-time.Hour)
	future := clk.Now().Add(time.Hour)

	insertLink(t, conn, 1, "expired", true, &past)
	insertLink(t, conn, 2, "open", true, &future)
	insertLink(t, conn, 3, "forever", true, nil)

	affected, err := sched.ExpireFeedbackLinksJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, []string{"forever", "open"}, activeCodes(t, conn))

	var actions []string
	require.NoError(t, conn.Raw(`SELECT action FROM audit_logs`).Scan(&actions).Error)
	assert.Equal(t, []string{auditdomain.ActionUpdateEntry}, actions)

	clk.Advance(2 * time.Hour)
	affected, err = sched.ExpireFeedbackLinksJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, []string{"forever"}, activeCodes(t, conn))
}

func TestPruneTicketSequencesJob(t *testing.T) {
	sched, conn, clk := newTestScheduler(t, nil)

	for _, day := range []time.Time{
		clk.Now().AddDate(0, 0, -45),
		clk.Now().AddDate(0, 0, -31),
		clk.Now().AddDate(0, 0, -30),
		clk.Now(),
	} {
		require.NoError(t, conn.Create(&sequence.TicketSequence{Day: sequence.DayKey(day), Value: 3}).Error)
	}

	affected, err := sched.PruneTicketSequencesJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	var remaining []string
	require.NoError(t, conn.Raw(`SELECT day FROM ticket_sequences ORDER BY day`).Scan(&remaining).Error)
	assert.Equal(t, []string{"20260502", "20260601"}, remaining)
}

func TestRunOnceSkipsJobsHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := ratelimit.NewLocker(client)

	sched, conn, clk := newTestScheduler(t, locker)
	past := clk.Now().Add(-time.Minute)
	insertLink(t, conn, 1, "expired", true, &past)

	_, held, err := locker.TryLock(context.Background(), "scheduler:expire_feedback_links", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, []string{"expired"}, activeCodes(t, conn))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, activeCodes(t, conn))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
