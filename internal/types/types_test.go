package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("")
	require.NoError(t, err)
	assert.True(t, IsZero(addr))

	burn, err := ParseAddress("1nc1nerator11111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, BurnAddress, burn)
	assert.False(t, IsZero(burn))

	_, err = ParseAddress("not-base58-0OIl")
	assert.Error(t, err)
}

func TestDeriveAddress(t *testing.T) {
	base := NewAccount()

	a, err := DeriveAddress(base, SeedToken)
	require.NoError(t, err)
	b, err := DeriveAddress(base, SeedToken)
	require.NoError(t, err)
	c, err := DeriveAddress(base, SeedFarm)
	require.NoError(t, err)

	assert.Equal(t, a, b, "derivation is deterministic")
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, base, a)
}
