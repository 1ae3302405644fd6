package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
)

func newIssuer(clk clock.Clock, secret string) *Issuer {
	return NewIssuer(Config{Secret: secret, Issuer: "itstaffcheck", TTL: time.Hour}, clk)
}

func TestIssueAndVerify(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	issuer := newIssuer(clk, "s3cret")

	raw, expiresAt, err := issuer.Issue(snowflake.ID(42))
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(time.Hour), expiresAt)

	userID, err := issuer.Verify(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 42, userID)
}

func TestVerifyCollapsesFailures(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	issuer := newIssuer(clk, "s3cret")

	raw, _, err := issuer.Issue(snowflake.ID(42))
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, expiredErr := issuer.Verify(raw)
	assert.ErrorIs(t, expiredErr, domain.ErrInvalidToken)

	other := newIssuer(clk, "other-secret")
	forged, _, err := other.Issue(snowflake.ID(42))
	require.NoError(t, err)
	_, forgedErr := issuer.Verify(forged)
	assert.ErrorIs(t, forgedErr, domain.ErrInvalidToken)

	_, garbageErr := issuer.Verify("not.a.jwt")
	assert.ErrorIs(t, garbageErr, domain.ErrInvalidToken)
	assert.Equal(t, expiredErr.Error(), forgedErr.Error())
}

func TestIssueWithoutSecret(t *testing.T) {
	issuer := newIssuer(clock.New(), "")
	_, _, err := issuer.Issue(snowflake.ID(1))
	assert.ErrorIs(t, err, domain.ErrSigningKeyMissing)
}

func TestFromHeader(t *testing.T) {
	raw, err := FromHeader("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", raw)

	_, err = FromHeader("")
	assert.ErrorIs(t, err, domain.ErrMissingToken)

	_, err = FromHeader("Basic Zm9v")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
