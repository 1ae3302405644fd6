package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	auditrepo "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/repository"
	auditservice "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/service"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/repository"
	ticketdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&auditdomain.AuditLog{},
		&ticketdomain.Ticket{},
		&domain.Link{},
		&domain.Response{},
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
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		AuditSvc: audit,
	}).(*Service)
	return svc, conn, clk
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func countRows(t *testing.T, conn *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Table(table).Count(&n).Error)
	return n
}

func TestLinkCode(t *testing.T) {
	code := linkCode("Q3 Laptop Refresh: How did we do?")
	assert.True(t, strings.HasPrefix(code, "q3-laptop-refresh-how-did-we-do-"), code)
	assert.NotEqual(t, code, linkCode("Q3 Laptop Refresh: How did we do?"))
	assert.True(t, strings.HasPrefix(linkCode("!!!"), "feedback-"))
	assert.LessOrEqual(t, len(linkCode(strings.Repeat("word ", 40))), maxSlugLength+11)
}

func TestSubmitAndAggregate(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "Onboarding"}})
	require.NoError(t, err)
	assert.True(t, link.Open)
	assert.Nil(t, link.AverageRating)

	public, err := svc.PublicLink(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, "Onboarding", public.Title)

	for _, rating := range []int{5, 4} {
		_, err := svc.Submit(ctx, link.Code, domain.SubmitRequest{Rating: rating, Comment: strPtr("ok")})
		require.NoError(t, err)
	}

	links, err := svc.ListLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.EqualValues(t, 2, links[0].ResponseCount)
	require.NotNil(t, links[0].AverageRating)
	assert.InDelta(t, 4.5, *links[0].AverageRating, 0.001)

	detail, err := svc.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Responses, 2)

	var submits int64
	require.NoError(t, conn.Table("audit_logs").Where("action = ?", auditdomain.ActionSubmitFeedback).Count(&submits).Error)
	assert.EqualValues(t, 2, submits)
}

func TestSubmitUnknownOrClosedLink(t *testing.T) {
	svc, conn, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "no-such-code", domain.SubmitRequest{Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inactive, err := svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "Old", Active: boolPtr(false)}})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, inactive.Code, domain.SubmitRequest{Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.PublicLink(ctx, inactive.Code)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	expiring, err := svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "Soon", ExpiresAt: strPtr("2026-06-02")}})
	require.NoError(t, err)
	clk.Advance(48 * time.Hour)
	_, err = svc.Submit(ctx, expiring.Code, domain.SubmitRequest{Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Zero(t, countRows(t, conn, "feedback_responses"))
}

func TestSubmitValidation(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "Desk move"}})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, link.Code, domain.SubmitRequest{Rating: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)
	_, err = svc.Submit(ctx, link.Code, domain.SubmitRequest{Rating: 6})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)
	_, err = svc.Submit(ctx, link.Code, domain.SubmitRequest{Rating: 4, Comment: strPtr(strings.Repeat("x", domain.MaxCommentLength+1))})
	assert.ErrorIs(t, err, domain.ErrInvalidComment)

	assert.Zero(t, countRows(t, conn, "feedback_responses"))
}

func TestCreateLinkValidatesTicket(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "T", TicketID: strPtr("42")}})
	assert.ErrorIs(t, err, domain.ErrInvalidTicket)
	_, err = svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "  "}})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)
	assert.Zero(t, countRows(t, conn, "feedback_links"))
}

func TestCreateLinkRetriesCodeCollision(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	codes := []string{"same-code", "same-code", "fresh-code"}
	svc.newCode = func(string) string {
		code := codes[0]
		codes = codes[1:]
		return code
	}

	first, err := svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "A"}})
	require.NoError(t, err)
	assert.Equal(t, "same-code", first.Code)

	second, err := svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "B"}})
	require.NoError(t, err)
	assert.Equal(t, "fresh-code", second.Code)
}

func TestDeleteLinkCascades(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, domain.CreateLinkRequest{LinkFields: domain.LinkFields{Title: "Survey"}})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, link.Code, domain.SubmitRequest{Rating: 2})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLink(ctx, link.ID))
	assert.Zero(t, countRows(t, conn, "feedback_responses"))
	assert.ErrorIs(t, svc.DeleteLink(ctx, link.ID), domain.ErrNotFound)
}
