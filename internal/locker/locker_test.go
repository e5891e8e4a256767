package locker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

func TestLocker_Unlock(t *testing.T) {
	logger := zaptest.NewLogger(t)
	rec := &events.Recorder{}
	host := chain.NewHost(logger, rec, 1)

	owner, stranger, recipient := types.NewAccount(), types.NewAccount(), types.NewAccount()
	cfg := token.DefaultConfig()
	cfg.GenesisBurn = nil
	tok, err := token.New(host, logger, types.NewAccount(), owner, cfg)
	require.NoError(t, err)

	l := New(host, logger, types.NewAccount(), owner)
	require.NoError(t, tok.Mint(owner, l.Address(), types.NewAmount(1000)))
	require.NoError(t, tok.SetExcludedFromAntiWhale(owner, l.Address(), true))
	assert.Equal(t, "1000", types.FormatAmount(l.Locked(tok)))
	rec.Reset()

	_, err = l.Unlock(stranger, tok, stranger)
	require.ErrorIs(t, err, types.ErrAccessDenied)
	_, err = l.Unlock(owner, tok, types.Address{})
	require.ErrorIs(t, err, types.ErrZeroAddress)
	assert.Empty(t, rec.OfType(events.Unlocked))

	released, err := l.Unlock(owner, tok, recipient)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), released.Uint64())
	// the locker is not exempt from the transfer tax
	assert.Equal(t, "950", types.FormatAmount(tok.BalanceOf(recipient)))
	assert.True(t, l.Locked(tok).IsZero())

	evs := rec.OfType(events.Unlocked)
	require.Len(t, evs, 1)
	assert.Equal(t, recipient, evs[0].(*events.UnlockedEvent).Recipient)

	released, err = l.Unlock(owner, tok, recipient)
	require.NoError(t, err)
	assert.True(t, released.IsZero())

	require.NoError(t, l.TransferOwnership(owner, stranger))
	_, err = l.Unlock(owner, tok, recipient)
	assert.ErrorIs(t, err, types.ErrAccessDenied)
}
