package sequence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const DefaultTicketNumberTemplate = "{PREFIX}-{YYYY}{MM}{DD}-{SEQ3}"

// FormatNumber renders a human-readable identifier from a template, the
// counter day and the value handed out for that day. It has no side effects.
func FormatNumber(template string, prefix string, day time.Time, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid sequence value: %d", seq)
	}
	prefix = strings.TrimSpace(prefix)
	if strings.Contains(template, "{PREFIX}") && prefix == "" {
		return "", fmt.Errorf("number prefix is empty")
	}

	day = day.UTC()
	out := template

	out = strings.ReplaceAll(out, "{PREFIX}", prefix)
	out = strings.ReplaceAll(out, "{YYYY}", day.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", day.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", day.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", day.Format("02"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	// Padding is a minimum width; larger values keep every digit.
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in number format: %s", out)
	}
	return out, nil
}

// FormatTicketNumber renders PREFIX-YYYYMMDD-NNN.
func FormatTicketNumber(prefix string, day time.Time, seq int64) (string, error) {
	return FormatNumber(DefaultTicketNumberTemplate, prefix, day, seq)
}

// DayKey is the counter row key for the UTC calendar day of t.
func DayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}
