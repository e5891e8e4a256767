package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// stubRouter pulls tokens through the ledger's allowance path and pays one
// base unit per two tokens sold.
type stubRouter struct {
	addr       types.Address
	ledger     *Ledger
	failAdd    bool
	swapped    *uint256.Int
	liquidity  *uint256.Int
	lpReceiver types.Address
}

func (r *stubRouter) Address() types.Address { return r.addr }

func (r *stubRouter) SwapTokensForBase(from types.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := r.ledger.TransferFrom(r.addr, from, r.addr, amount); err != nil {
		return nil, err
	}
	r.swapped = amount.Clone()
	return new(uint256.Int).Div(amount, uint256.NewInt(2)), nil
}

func (r *stubRouter) AddLiquidity(from types.Address, tokenAmount, baseAmount *uint256.Int, lpTo types.Address) error {
	if r.failAdd {
		return errors.New("pool paused")
	}
	if err := r.ledger.TransferFrom(r.addr, from, r.addr, tokenAmount); err != nil {
		return err
	}
	r.liquidity = tokenAmount.Clone()
	r.lpReceiver = lpTo
	return nil
}

func setupLiquify(t *testing.T, failAdd bool) (*fixture, *stubRouter) {
	t.Helper()
	f := newFixture(t)
	f.mintAndHandOver(t, 10_000_000)

	router := &stubRouter{addr: types.NewAccount(), ledger: f.ledger, failAdd: failAdd}
	require.NoError(t, f.ledger.UpdateRouter(f.operator, router))
	require.NoError(t, f.ledger.UpdateMinAmountToLiquify(f.operator, types.NewAmount(100)))
	require.NoError(t, f.ledger.UpdateSwapAndLiquifyEnabled(f.operator, true))
	f.rec.Reset()
	return f, router
}

func TestLiquify_SwapsThresholdAfterTransfer(t *testing.T) {
	f, router := setupLiquify(t, false)

	require.NoError(t, f.ledger.Transfer(f.alice, f.bob, types.NewAmount(12345)))

	// the transfer itself is taxed as usual
	assert.Equal(t, "11728", f.balance(f.bob))
	// 494 retained, 100 liquified
	assert.Equal(t, "394", f.balance(f.ledger.Address()))
	assert.Equal(t, "100", f.balance(router.addr))
	assert.Equal(t, uint64(50), router.swapped.Uint64())
	assert.Equal(t, uint64(50), router.liquidity.Uint64())
	assert.Equal(t, f.owner, router.lpReceiver, "shares go to the owner, not the operator")
	assert.True(t, f.ledger.Allowance(f.ledger.Address(), router.addr).IsZero())

	evs := f.rec.OfType(events.SwapAndLiquify)
	require.Len(t, evs, 1)
	ev := evs[0].(*events.SwapAndLiquifyEvent)
	assert.Equal(t, uint64(50), ev.TokensSwapped.Uint64())
	assert.Equal(t, uint64(25), ev.BaseReceived.Uint64())
	assert.Equal(t, uint64(50), ev.TokensIntoPool.Uint64())
	assertConserved(t, f.ledger)
}

func TestLiquify_BelowThresholdDoesNothing(t *testing.T) {
	f, router := setupLiquify(t, false)

	require.NoError(t, f.ledger.Transfer(f.alice, f.bob, types.NewAmount(1234)))
	assert.Equal(t, "49", f.balance(f.ledger.Address()))
	assert.Nil(t, router.swapped)
	assert.Empty(t, f.rec.OfType(events.SwapAndLiquify))
}

func TestLiquify_SkippedForRouterAndOwnerSenders(t *testing.T) {
	f, router := setupLiquify(t, false)

	require.NoError(t, f.ledger.UpdateSwapAndLiquifyEnabled(f.operator, false))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.ledger.Transfer(f.alice, f.bob, types.NewAmount(1234)))
	}
	require.NoError(t, f.ledger.Transfer(f.alice, f.owner, types.NewAmount(10)))
	require.NoError(t, f.ledger.Transfer(f.alice, router.addr, types.NewAmount(10)))
	require.NoError(t, f.ledger.UpdateSwapAndLiquifyEnabled(f.operator, true))
	assert.Equal(t, "147", f.balance(f.ledger.Address()))

	require.NoError(t, f.ledger.Transfer(f.owner, f.bob, types.NewAmount(10)))
	require.NoError(t, f.ledger.Transfer(router.addr, f.bob, types.NewAmount(10)))
	assert.Nil(t, router.swapped, "owner and router senders must not liquify")

	require.NoError(t, f.ledger.Transfer(f.bob, f.carol, types.NewAmount(10)))
	require.NotNil(t, router.swapped)
	assert.Equal(t, "47", f.balance(f.ledger.Address()))
}

func TestLiquify_RouterFailureAbortsTransfer(t *testing.T) {
	f, router := setupLiquify(t, true)

	err := f.ledger.Transfer(f.alice, f.bob, types.NewAmount(12345))
	require.Error(t, err)

	assert.Equal(t, "10000000", f.balance(f.alice))
	assert.Equal(t, "0", f.balance(f.bob))
	assert.Equal(t, "0", f.balance(f.ledger.Address()))
	assert.Equal(t, "0", f.balance(router.addr))
	assert.True(t, f.ledger.Allowance(f.ledger.Address(), router.addr).IsZero())
	assert.Empty(t, f.rec.Events())
	assertConserved(t, f.ledger)
}
