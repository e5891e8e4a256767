package dex

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

type market struct {
	host   *chain.Host
	rec    *events.Recorder
	ledger *token.Ledger
	pair   *Pair
	owner  types.Address
	alice  types.Address
	bob    types.Address
}

// newMarket seeds a pair with 1,000,000 tokens against 1,000,000 base.
func newMarket(t *testing.T) *market {
	t.Helper()
	logger := zaptest.NewLogger(t)
	rec := &events.Recorder{}
	host := chain.NewHost(logger, rec, 1)
	m := &market{host: host, rec: rec, owner: types.NewAccount(), alice: types.NewAccount(), bob: types.NewAccount()}

	tokenAddr, err := types.DeriveAddress(m.owner, types.SeedToken)
	require.NoError(t, err)
	m.ledger, err = token.New(host, logger, tokenAddr, m.owner, token.DefaultConfig())
	require.NoError(t, err)

	pairAddr, err := types.DeriveAddress(m.owner, types.SeedPair)
	require.NoError(t, err)
	m.pair, err = New(host, logger, pairAddr, m.owner, m.ledger, DefaultFeeBps)
	require.NoError(t, err)

	seed := types.NewAmount(1_000_000)
	require.NoError(t, m.ledger.SetExcludedFromAntiWhale(m.owner, pairAddr, true))
	require.NoError(t, m.ledger.Mint(m.owner, m.owner, seed))
	require.NoError(t, m.ledger.Mint(m.owner, m.alice, types.NewAmount(10_000_000)))
	require.NoError(t, m.pair.Fund(m.owner, m.owner, seed))
	require.NoError(t, m.ledger.Approve(m.owner, pairAddr, seed))
	require.NoError(t, m.pair.AddLiquidity(m.owner, seed, seed, m.owner))
	rec.Reset()
	return m
}

func (m *market) k() *uint256.Int {
	rt, rb := m.pair.Reserves()
	return new(uint256.Int).Mul(rt, rb)
}

func assertBaseConserved(t *testing.T, p *Pair) {
	t.Helper()
	st := p.Export()
	sum := types.MustParseAmount(st.ReserveBase)
	for _, v := range st.Base {
		sum.Add(sum, types.MustParseAmount(v))
	}
	assert.Equal(t, st.BaseSupply, types.FormatAmount(sum))
}

func TestPair_InitialLiquidity(t *testing.T) {
	m := newMarket(t)

	rt, rb := m.pair.Reserves()
	assert.Equal(t, uint64(1_000_000), rt.Uint64())
	assert.Equal(t, uint64(1_000_000), rb.Uint64())
	assert.Equal(t, uint64(999_000), m.pair.LP().BalanceOf(m.owner).Uint64())
	assert.Equal(t, uint64(1000), m.pair.LP().BalanceOf(types.BurnAddress).Uint64())
	assert.Equal(t, uint64(1_000_000), m.pair.LP().TotalSupply().Uint64())
	assert.True(t, m.pair.BaseBalanceOf(m.owner).IsZero())
	assert.Equal(t, "FARM-LP", m.pair.LP().Symbol())
}

func TestPair_BuyTokensPaysTaxOnTheWayOut(t *testing.T) {
	m := newMarket(t)
	require.NoError(t, m.pair.Fund(m.owner, m.bob, types.NewAmount(10_000)))
	kBefore := m.k()

	out, err := m.pair.SwapExactBaseForTokens(m.bob, types.NewAmount(10_000), types.NewAmount(9_800))
	require.NoError(t, err)
	assert.Equal(t, uint64(9876), out.Uint64())
	// 5% tax on the pair -> bob leg
	assert.Equal(t, uint64(9383), m.ledger.BalanceOf(m.bob).Uint64())
	assert.True(t, m.pair.BaseBalanceOf(m.bob).IsZero())

	rt, rb := m.pair.Reserves()
	assert.Equal(t, uint64(990_124), rt.Uint64())
	assert.Equal(t, uint64(1_010_000), rb.Uint64())
	assert.False(t, m.k().Lt(kBefore), "k must not decrease")

	swaps := m.rec.OfType(events.Swap)
	require.Len(t, swaps, 1)
	assert.False(t, swaps[0].(*events.SwapEvent).TokenIn)
	assertBaseConserved(t, m.pair)
}

func TestPair_SellTokensCountsNetReceived(t *testing.T) {
	m := newMarket(t)
	amount := types.NewAmount(1000)
	require.NoError(t, m.ledger.Approve(m.alice, m.pair.Address(), amount))

	rtBefore, _ := m.pair.Reserves()
	expected, err := GetAmountOut(types.NewAmount(950), rtBefore, types.NewAmount(1_000_000), DefaultFeeBps)
	require.NoError(t, err)

	out, err := m.pair.SwapExactTokensForBase(m.alice, amount, new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, expected.Uint64(), out.Uint64())
	assert.Equal(t, out.Uint64(), m.pair.BaseBalanceOf(m.alice).Uint64())

	rt, _ := m.pair.Reserves()
	assert.Equal(t, rtBefore.Uint64()+950, rt.Uint64())
	assert.Equal(t, rt.Uint64(), m.ledger.BalanceOf(m.pair.Address()).Uint64())
}

func TestPair_SlippageAbortsSwap(t *testing.T) {
	m := newMarket(t)
	require.NoError(t, m.pair.Fund(m.owner, m.bob, types.NewAmount(10_000)))

	_, err := m.pair.SwapExactBaseForTokens(m.bob, types.NewAmount(10_000), types.NewAmount(9_877))
	require.ErrorIs(t, err, ErrSlippageExceeded)
	assert.Equal(t, uint64(10_000), m.pair.BaseBalanceOf(m.bob).Uint64())
	assert.True(t, m.ledger.BalanceOf(m.bob).IsZero())

	_, err = m.pair.SwapExactBaseForTokens(m.bob, types.NewAmount(10_001), new(uint256.Int))
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestPair_RemoveLiquidity(t *testing.T) {
	m := newMarket(t)
	shares := types.NewAmount(499_500)

	_, _, err := m.pair.RemoveLiquidity(m.owner, shares)
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)

	require.NoError(t, m.pair.LP().Approve(m.owner, m.pair.Address(), shares))
	tokenOut, baseOut, err := m.pair.RemoveLiquidity(m.owner, shares)
	require.NoError(t, err)
	assert.Equal(t, uint64(499_500), tokenOut.Uint64())
	assert.Equal(t, uint64(499_500), baseOut.Uint64())

	assert.Equal(t, uint64(499_500), m.ledger.BalanceOf(m.owner).Uint64())
	assert.Equal(t, uint64(499_500), m.pair.BaseBalanceOf(m.owner).Uint64())
	assert.Equal(t, uint64(500_500), m.pair.LP().TotalSupply().Uint64())
	assertBaseConserved(t, m.pair)
}

func TestPair_FundIsOwnerOnly(t *testing.T) {
	m := newMarket(t)
	err := m.pair.Fund(m.alice, m.alice, types.NewAmount(1))
	assert.ErrorIs(t, err, types.ErrAccessDenied)

	require.NoError(t, m.pair.Fund(m.owner, m.alice, types.NewAmount(10)))
	require.NoError(t, m.pair.TransferBase(m.alice, m.bob, types.NewAmount(4)))
	assert.Equal(t, uint64(6), m.pair.BaseBalanceOf(m.alice).Uint64())
	assert.Equal(t, uint64(4), m.pair.BaseBalanceOf(m.bob).Uint64())
	assert.ErrorIs(t, m.pair.TransferBase(m.alice, m.bob, types.NewAmount(7)), types.ErrInsufficientBalance)
}

func enableLiquify(t *testing.T, m *market) {
	t.Helper()
	require.NoError(t, m.ledger.UpdateRouter(m.owner, m.pair))
	require.NoError(t, m.ledger.UpdateMinAmountToLiquify(m.owner, types.NewAmount(100)))
	require.NoError(t, m.ledger.UpdateSwapAndLiquifyEnabled(m.owner, true))
	m.rec.Reset()
}

func TestPair_LiquifiesLedgerTax(t *testing.T) {
	m := newMarket(t)
	enableLiquify(t, m)
	lpBefore := m.pair.LP().BalanceOf(m.owner)

	require.NoError(t, m.ledger.Transfer(m.alice, m.bob, types.NewAmount(12345)))

	held := m.ledger.BalanceOf(m.ledger.Address())
	assert.True(t, held.Uint64() >= 394 && held.Uint64() < 494, "between 50 and 100 tokens liquified, kept %d", held.Uint64())
	assert.True(t, m.pair.LP().BalanceOf(m.owner).Gt(lpBefore), "owner receives the new shares")
	assert.True(t, m.ledger.Allowance(m.ledger.Address(), m.pair.Address()).IsZero())
	assert.Len(t, m.rec.OfType(events.SwapAndLiquify), 1)
	assert.Len(t, m.rec.OfType(events.LiquidityAdded), 1)

	rt, _ := m.pair.Reserves()
	assert.Equal(t, rt.Uint64(), m.ledger.BalanceOf(m.pair.Address()).Uint64())
	assertBaseConserved(t, m.pair)
}

func TestPair_LiquifyDuringSellKeepsReservesInSync(t *testing.T) {
	m := newMarket(t)
	enableLiquify(t, m)

	amount := types.NewAmount(12345)
	require.NoError(t, m.ledger.Approve(m.alice, m.pair.Address(), amount))
	rtBefore, _ := m.pair.Reserves()

	_, err := m.pair.SwapExactTokensForBase(m.alice, amount, new(uint256.Int))
	require.NoError(t, err)

	spentByLedger := 494 - m.ledger.BalanceOf(m.ledger.Address()).Uint64()
	require.NotZero(t, spentByLedger, "the sell triggered a nested liquify")

	rt, _ := m.pair.Reserves()
	assert.Equal(t, rtBefore.Uint64()+11728+spentByLedger, rt.Uint64())
	assert.Equal(t, rt.Uint64(), m.ledger.BalanceOf(m.pair.Address()).Uint64())

	swaps := m.rec.OfType(events.Swap)
	require.Len(t, swaps, 2)
	last := swaps[1].(*events.SwapEvent)
	assert.Equal(t, m.alice, last.Trader)
	assert.Equal(t, uint64(11728), last.AmountIn.Uint64())
}

func TestPair_ExportRestore(t *testing.T) {
	m := newMarket(t)
	require.NoError(t, m.pair.Fund(m.owner, m.bob, types.NewAmount(5000)))
	_, err := m.pair.SwapExactBaseForTokens(m.bob, types.NewAmount(2000), new(uint256.Int))
	require.NoError(t, err)

	st := m.pair.Export()
	restored, err := FromState(m.host, zaptest.NewLogger(t), st, m.ledger)
	require.NoError(t, err)
	assert.Equal(t, st, restored.Export())

	rt, rb := restored.Reserves()
	wantT, wantB := m.pair.Reserves()
	assert.Equal(t, wantT, rt)
	assert.Equal(t, wantB, rb)

	st.BaseSupply = "1"
	_, err = FromState(m.host, zaptest.NewLogger(t), st, m.ledger)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}
