// Package datefield parses optional calendar dates sent by API clients.
package datefield

import (
	"errors"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Parse accepts RFC 3339 timestamps or plain YYYY-MM-DD dates. A nil or blank
// value yields nil so the column is stored as NULL.
func Parse(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		utc := parsed.UTC()
		return &utc, nil
	}
	if parsed, err := time.Parse(DateLayout, trimmed); err == nil {
		return &parsed, nil
	}
	return nil, ErrInvalidDate
}

// Required is Parse for mandatory fields.
func Required(value string) (time.Time, error) {
	parsed, err := Parse(&value)
	if err != nil {
		return time.Time{}, err
	}
	if parsed == nil {
		return time.Time{}, ErrInvalidDate
	}
	return *parsed, nil
}

// Format renders a stored date back as YYYY-MM-DD.
func Format(value *time.Time) *string {
	if value == nil || value.IsZero() {
		return nil
	}
	out := value.UTC().Format(DateLayout)
	return &out
}

// DaysUntil counts whole UTC calendar days from now to target.
func DaysUntil(now time.Time, target time.Time) int {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
