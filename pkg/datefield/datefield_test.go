package datefield

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestParse(t *testing.T) {
	got, err := Parse(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Parse(ptr("  "))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Parse(ptr("2026-07-01"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = Parse(ptr("2026-07-01T10:00:00+02:00"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC), *got)

	_, err = Parse(ptr("01/07/2026"))
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = Required("")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 7, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysUntil(now, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, DaysUntil(now, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysUntil(now, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)))
}
