package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"go.uber.org/zap"
)

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := Generate()
	require.NoError(t, err)

	sealed, err := sealer.Seal("hunter2!")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "hunter2")

	plain, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hunter2!", plain)
}

func TestOpenWithOtherIdentityFails(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrCiphertext)

	_, err = a.Open("%%%")
	assert.ErrorIs(t, err, ErrCiphertext)
}

func TestNewSealerRequiresIdentityInProduction(t *testing.T) {
	_, err := NewSealer(config.Config{Environment: "production"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrIdentityRequired)

	sealer, err := NewSealer(config.Config{Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.NotEmpty(t, sealer.Recipient())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("AGE-SECRET-KEY-NOPE")
	assert.Error(t, err)
}
