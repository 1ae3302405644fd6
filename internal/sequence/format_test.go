package sequence

import (
	"testing"
	"time"
)

func TestFormatTicketNumber(t *testing.T) {
	day := time.Date(2026, 1, 9, 23, 30, 0, 0, time.UTC)
	cases := []struct {
		seq  int64
		want string
	}{
		{1, "TICKET-20260109-001"},
		{42, "TICKET-20260109-042"},
		{1234, "TICKET-20260109-1234"},
	}
	for _, tc := range cases {
		got, err := FormatTicketNumber("TICKET", day, tc.seq)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("seq %d: got %q, want %q", tc.seq, got, tc.want)
		}
	}
}

func TestFormatNumberRejectsBadInput(t *testing.T) {
	day := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	if _, err := FormatTicketNumber("TICKET", day, 0); err == nil {
		t.Fatal("expected error for zero sequence")
	}
	if _, err := FormatTicketNumber(" ", day, 1); err == nil {
		t.Fatal("expected error for empty prefix")
	}
	if _, err := FormatNumber("{PREFIX}-{WEEK}", "X", day, 1); err == nil {
		t.Fatal("expected error for unresolved token")
	}
}

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	local := time.Date(2026, 1, 10, 2, 0, 0, 0, loc)
	if got := DayKey(local); got != "20260109" {
		t.Fatalf("expected UTC day 20260109, got %s", got)
	}
}
