package scheduler

import (
	"context"
	"fmt"

	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/sequence"
)

// ExpireFeedbackLinksJob deactivates links whose expiry has passed so admin
// listings match what the public endpoints already enforce.
func (s *Scheduler) ExpireFeedbackLinksJob(ctx context.Context) (int64, error) {
	now := s.clock.Now().UTC()
	res := s.db.WithContext(ctx).Exec(
		`UPDATE feedback_links
		 SET active = ?, updated_at = ?
		 WHERE active = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		false, now, true, now,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdateEntry,
			TargetType: "feedback_link",
			Detail:     fmt.Sprintf("deactivated %d expired feedback links", res.RowsAffected),
			Metadata:   map[string]any{"deactivated": res.RowsAffected, "source": "scheduler"},
		})
	}
	return res.RowsAffected, nil
}

// PruneTicketSequencesJob drops day counters older than the retention window.
// Ticket numbers already issued keep their value; only the counter row goes.
func (s *Scheduler) PruneTicketSequencesJob(ctx context.Context) (int64, error) {
	cutoff := sequence.DayKey(s.clock.Now().AddDate(0, 0, -s.cfg.SequenceRetentionDays))
	res := s.db.WithContext(ctx).Exec(`DELETE FROM ticket_sequences WHERE day < ?`, cutoff)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
