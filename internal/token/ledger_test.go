package token

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

const genesisBurn = "500000000000000000000000000000"

type fixture struct {
	host     *chain.Host
	rec      *events.Recorder
	ledger   *Ledger
	owner    types.Address
	operator types.Address
	alice    types.Address
	bob      types.Address
	carol    types.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	rec := &events.Recorder{}
	host := chain.NewHost(logger, rec, 1)

	f := &fixture{
		host:     host,
		rec:      rec,
		owner:    types.NewAccount(),
		operator: types.NewAccount(),
		alice:    types.NewAccount(),
		bob:      types.NewAccount(),
		carol:    types.NewAccount(),
	}
	addr, err := types.DeriveAddress(f.owner, types.SeedToken)
	require.NoError(t, err)
	f.ledger, err = New(host, logger, addr, f.owner, DefaultConfig())
	require.NoError(t, err)
	return f
}

// mintAndHandOver mints to alice as the owner-operator, then moves the
// operator role away from the owner as most scenarios do.
func (f *fixture) mintAndHandOver(t *testing.T, amount uint64) {
	t.Helper()
	require.NoError(t, f.ledger.Mint(f.owner, f.alice, types.NewAmount(amount)))
	require.NoError(t, f.ledger.TransferOperator(f.owner, f.operator))
	require.Equal(t, f.operator, f.ledger.Operator())
}

func (f *fixture) balance(addr types.Address) string {
	return types.FormatAmount(f.ledger.BalanceOf(addr))
}

func assertConserved(t *testing.T, l *Ledger) {
	t.Helper()
	sum := new(uint256.Int)
	for _, v := range l.Export().Balances {
		sum.Add(sum, types.MustParseAmount(v))
	}
	assert.Equal(t, l.TotalSupply().String(), sum.String(), "balances must sum to total supply")
	assert.False(t, l.TotalSupply().Gt(l.Cap()), "supply above cap")
}

func TestLedger_GenesisBurnAndCap(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, genesisBurn, f.balance(types.BurnAddress))
	assert.Equal(t, genesisBurn, types.FormatAmount(f.ledger.TotalSupply()))
	assert.True(t, f.ledger.CirculatingSupply().IsZero())
	assert.True(t, f.ledger.MaxTransferAmount().IsZero())

	err := f.ledger.Mint(f.owner, f.alice, f.ledger.Cap())
	require.ErrorIs(t, err, types.ErrSupplyCapExceeded)

	var ce *chain.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "token.mint", ce.Op)
	assertConserved(t, f.ledger)
}

func TestLedger_MintExactlyToCap(t *testing.T) {
	f := newFixture(t)

	mintable := f.ledger.MintableSupply()
	require.NoError(t, f.ledger.Mint(f.owner, f.alice, mintable))
	assert.Equal(t, f.ledger.Cap().String(), f.ledger.TotalSupply().String())
	assert.True(t, f.ledger.MintableSupply().IsZero())

	err := f.ledger.Mint(f.owner, f.alice, types.NewAmount(1))
	assert.ErrorIs(t, err, types.ErrSupplyCapExceeded)
	assertConserved(t, f.ledger)
}

func TestLedger_OperatorTransfersAreFree(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Mint(f.owner, f.owner, types.NewAmount(1000)))

	require.NoError(t, f.ledger.Transfer(f.owner, f.alice, types.NewAmount(500)))
	assert.Equal(t, "500", f.balance(f.alice))

	require.NoError(t, f.ledger.Transfer(f.alice, f.owner, types.NewAmount(400)))
	assert.Equal(t, "100", f.balance(f.alice))
	assert.Equal(t, "900", f.balance(f.owner))
	assert.Equal(t, "0", f.balance(f.ledger.Address()))
}

func TestLedger_MintWithDevReward(t *testing.T) {
	f := newFixture(t)

	split, err := f.ledger.MintWithDevReward(f.owner, f.alice, f.bob, types.NewAmount(5000))
	require.NoError(t, err)
	assert.Equal(t, "4091", f.balance(f.alice))
	assert.Equal(t, "909", f.balance(f.bob))
	assert.Equal(t, uint64(4091), split.Primary.Uint64())
	assert.Equal(t, uint64(909), split.Dev.Uint64())

	mints := f.rec.OfType(events.Mint)
	require.Len(t, mints, 1)
	ev := mints[0].(*events.MintEvent)
	assert.Equal(t, f.bob, ev.DevTo)
	assert.Equal(t, uint64(909), ev.DevAmount.Uint64())
}

func TestLedger_MintWithDevRewardCapIsAllOrNothing(t *testing.T) {
	f := newFixture(t)

	over := new(uint256.Int).AddUint64(f.ledger.MintableSupply(), 1)
	_, err := f.ledger.MintWithDevReward(f.owner, f.alice, f.bob, over)
	require.ErrorIs(t, err, types.ErrSupplyCapExceeded)
	assert.Equal(t, "0", f.balance(f.alice))
	assert.Equal(t, "0", f.balance(f.bob))
	assert.Equal(t, genesisBurn, types.FormatAmount(f.ledger.TotalSupply()))
}

func TestLedger_OnlyOperator(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, f.owner, f.ledger.Owner())
	assert.Equal(t, f.owner, f.ledger.Operator())

	stranger := f.operator
	checks := map[string]error{
		"transfer tax": f.ledger.UpdateTransferTaxRate(stranger, 500),
		"burn rate":    f.ledger.UpdateBurnRate(stranger, 20),
		"max transfer": f.ledger.UpdateMaxTransferAmountRate(stranger, 100),
		"swap enabled": f.ledger.UpdateSwapAndLiquifyEnabled(stranger, true),
		"exclusion":    f.ledger.SetExcludedFromAntiWhale(stranger, stranger, true),
		"router":       f.ledger.UpdateRouter(stranger, &stubRouter{addr: stranger}),
		"min liquify":  f.ledger.UpdateMinAmountToLiquify(stranger, types.NewAmount(100)),
		"operator":     f.ledger.TransferOperator(stranger, f.alice),
		"mint":         f.ledger.Mint(stranger, stranger, types.NewAmount(1)),
		"ownership":    f.ledger.TransferOwnership(stranger, stranger),
	}
	_, devErr := f.ledger.MintWithDevReward(stranger, stranger, stranger, types.NewAmount(1))
	checks["mint with dev"] = devErr

	for name, err := range checks {
		assert.ErrorIs(t, err, types.ErrAccessDenied, name)
	}
}

func TestLedger_TransferOperator(t *testing.T) {
	f := newFixture(t)

	err := f.ledger.TransferOperator(f.operator, f.operator)
	require.ErrorIs(t, err, types.ErrAccessDenied)

	require.NoError(t, f.ledger.TransferOperator(f.owner, f.operator))
	assert.Equal(t, f.operator, f.ledger.Operator())

	err = f.ledger.TransferOperator(f.operator, types.ZeroAddress)
	require.ErrorIs(t, err, types.ErrZeroAddress)
	assert.Equal(t, f.operator, f.ledger.Operator())

	evs := f.rec.OfType(events.OperatorTransferred)
	require.Len(t, evs, 1)
	ev := evs[0].(*events.RoleTransferredEvent)
	assert.Equal(t, f.owner, ev.Previous)
	assert.Equal(t, f.operator, ev.Current)
}

func TestLedger_RateBounds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.TransferOperator(f.owner, f.operator))

	p := f.ledger.Policy()
	assert.Equal(t, uint64(500), p.TransferTaxRate)
	assert.Equal(t, uint64(20), p.BurnRate)

	require.NoError(t, f.ledger.UpdateTransferTaxRate(f.operator, 0))
	assert.Equal(t, uint64(0), f.ledger.Policy().TransferTaxRate)
	require.NoError(t, f.ledger.UpdateTransferTaxRate(f.operator, 1000))
	assert.Equal(t, uint64(1000), f.ledger.Policy().TransferTaxRate)
	assert.ErrorIs(t, f.ledger.UpdateTransferTaxRate(f.operator, 1001), types.ErrInvalidParameter)
	assert.Equal(t, uint64(1000), f.ledger.Policy().TransferTaxRate)

	require.NoError(t, f.ledger.UpdateBurnRate(f.operator, 0))
	require.NoError(t, f.ledger.UpdateBurnRate(f.operator, 100))
	assert.Equal(t, uint64(100), f.ledger.Policy().BurnRate)
	assert.ErrorIs(t, f.ledger.UpdateBurnRate(f.operator, 101), types.ErrInvalidParameter)

	assert.ErrorIs(t, f.ledger.UpdateMaxTransferAmountRate(f.operator, 49), types.ErrInvalidParameter)
	assert.ErrorIs(t, f.ledger.UpdateMaxTransferAmountRate(f.operator, 10_001), types.ErrInvalidParameter)
	require.NoError(t, f.ledger.UpdateMaxTransferAmountRate(f.operator, 50))
	require.NoError(t, f.ledger.UpdateMaxTransferAmountRate(f.operator, 10_000))

	// every accepted update and nothing else was announced
	assert.Len(t, f.rec.OfType(events.PolicyUpdated), 6)
}

func TestLedger_TransferTaxSplit(t *testing.T) {
	f := newFixture(t)
	f.mintAndHandOver(t, 10_000_000)

	require.NoError(t, f.ledger.Transfer(f.alice, f.bob, types.NewAmount(12345)))
	assert.Equal(t, "9987655", f.balance(f.alice))
	assert.Equal(t, "11728", f.balance(f.bob))
	assert.Equal(t, "500000000000000000000000000123", f.balance(types.BurnAddress))
	assert.Equal(t, "494", f.balance(f.ledger.Address()))

	require.NoError(t, f.ledger.Approve(f.alice, f.carol, types.NewAmount(22345)))
	require.NoError(t, f.ledger.TransferFrom(f.carol, f.alice, f.carol, types.NewAmount(22345)))
	assert.Equal(t, "9965310", f.balance(f.alice))
	assert.Equal(t, "21228", f.balance(f.carol))
	assert.Equal(t, "500000000000000000000000000346", f.balance(types.BurnAddress))
	assert.Equal(t, "1388", f.balance(f.ledger.Address()))
	assert.True(t, f.ledger.Allowance(f.alice, f.carol).IsZero())

	assertConserved(t, f.ledger)
}

func TestLedger_TransferSmallAmount(t *testing.T) {
	f := newFixture(t)
	f.mintAndHandOver(t, 10_000_000)

	require.NoError(t, f.ledger.Transfer(f.alice, f.bob, types.NewAmount(19)))
	assert.Equal(t, "9999981", f.balance(f.alice))
	assert.Equal(t, "19", f.balance(f.bob))
	assert.Equal(t, genesisBurn, f.balance(types.BurnAddress))
	assert.Equal(t, "0", f.balance(f.ledger.Address()))
}

func TestLedger_TransferPolicyVariants(t *testing.T) {
	tests := []struct {
		name      string
		taxRate   uint64
		burnRate  uint64
		amount    uint64
		wantBob   string
		wantBurn  string
		wantHeld  string
		wantAlice string
	}{
		{"no tax", 0, 20, 10000, "10000", genesisBurn, "0", "9990000"},
		{"no burn", 500, 0, 1234, "1173", genesisBurn, "61", "9998766"},
		{"all burn", 500, 100, 1234, "1173", "500000000000000000000000000061", "0", "9998766"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.mintAndHandOver(t, 10_000_000)
			require.NoError(t, f.ledger.UpdateTransferTaxRate(f.operator, tt.taxRate))
			require.NoError(t, f.ledger.UpdateBurnRate(f.operator, tt.burnRate))

			quote, err := f.ledger.QuoteTransfer(f.alice, f.bob, types.NewAmount(tt.amount))
			require.NoError(t, err)

			require.NoError(t, f.ledger.Transfer(f.alice, f.bob, types.NewAmount(tt.amount)))
			assert.Equal(t, tt.wantAlice, f.balance(f.alice))
			assert.Equal(t, tt.wantBob, f.balance(f.bob))
			assert.Equal(t, tt.wantBurn, f.balance(types.BurnAddress))
			assert.Equal(t, tt.wantHeld, f.balance(f.ledger.Address()))
			assert.Equal(t, tt.wantBob, types.FormatAmount(quote.Received))
			assertConserved(t, f.ledger)
		})
	}
}

func TestLedger_MaxTransferAmount(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, uint64(100), f.ledger.Policy().MaxTransferAmountRate)
	assert.Equal(t, "0", types.FormatAmount(f.ledger.MaxTransferAmount()))

	require.NoError(t, f.ledger.Mint(f.owner, f.alice, types.NewAmount(1_000_000)))
	assert.Equal(t, "10000", types.FormatAmount(f.ledger.MaxTransferAmount()))

	require.NoError(t, f.ledger.Mint(f.owner, f.alice, types.NewAmount(1000)))
	assert.Equal(t, "10010", types.FormatAmount(f.ledger.MaxTransferAmount()))

	require.NoError(t, f.ledger.TransferOperator(f.owner, f.operator))
	require.NoError(t, f.ledger.UpdateMaxTransferAmountRate(f.operator, 200))
	assert.Equal(t, "20020", types.FormatAmount(f.ledger.MaxTransferAmount()))
}

func TestLedger_AntiWhale(t *testing.T) {
	f := newFixture(t)
	for _, to := range []types.Address{f.alice, f.bob, f.carol, f.operator, f.owner} {
		require.NoError(t, f.ledger.Mint(f.owner, to, types.NewAmount(10000)))
	}
	require.NoError(t, f.ledger.TransferOperator(f.owner, f.operator))

	outsider := types.NewAccount()
	assert.False(t, f.ledger.IsExcludedFromAntiWhale(outsider))
	require.NoError(t, f.ledger.SetExcludedFromAntiWhale(f.operator, outsider, true))
	assert.True(t, f.ledger.IsExcludedFromAntiWhale(outsider))
	require.NoError(t, f.ledger.UpdateMaxTransferAmountRate(f.operator, 50))

	assert.Equal(t, "250", types.FormatAmount(f.ledger.MaxTransferAmount()))
	err := f.ledger.Transfer(f.alice, f.bob, types.NewAmount(251))
	require.ErrorIs(t, err, types.ErrAntiWhaleLimitExceeded)

	require.NoError(t, f.ledger.Approve(f.alice, f.carol, types.NewAmount(251)))
	err = f.ledger.TransferFrom(f.carol, f.alice, f.carol, types.NewAmount(251))
	require.ErrorIs(t, err, types.ErrAntiWhaleLimitExceeded)
	assert.Equal(t, "251", types.FormatAmount(f.ledger.Allowance(f.alice, f.carol)), "allowance spend must be rolled back")

	require.NoError(t, f.ledger.Transfer(f.alice, f.bob, types.NewAmount(250)))
	require.NoError(t, f.ledger.TransferFrom(f.carol, f.alice, f.carol, types.NewAmount(249)))

	// exempt endpoints
	for _, to := range []types.Address{types.BurnAddress, f.operator, f.owner, f.ledger.Address(), outsider} {
		require.NoError(t, f.ledger.Transfer(f.alice, to, types.NewAmount(251)), to.String())
	}
	require.NoError(t, f.ledger.Transfer(f.operator, f.alice, types.NewAmount(251)))
	require.NoError(t, f.ledger.Transfer(f.owner, f.alice, types.NewAmount(251)))
	require.NoError(t, f.ledger.Transfer(f.owner, f.operator, types.NewAmount(251)))

	assertConserved(t, f.ledger)
}

func TestLedger_TransferFailuresHaveNoEffect(t *testing.T) {
	f := newFixture(t)
	f.mintAndHandOver(t, 1000)
	f.rec.Reset()

	err := f.ledger.Transfer(f.bob, f.alice, types.NewAmount(1))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	err = f.ledger.Transfer(f.alice, types.ZeroAddress, types.NewAmount(1))
	require.ErrorIs(t, err, types.ErrZeroAddress)

	err = f.ledger.TransferFrom(f.carol, f.alice, f.carol, types.NewAmount(1))
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)

	require.NoError(t, f.ledger.Approve(f.alice, f.carol, types.NewAmount(5000)))
	f.rec.Reset()
	err = f.ledger.TransferFrom(f.carol, f.alice, f.carol, types.NewAmount(2000))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	assert.Equal(t, "5000", types.FormatAmount(f.ledger.Allowance(f.alice, f.carol)))
	assert.Equal(t, "1000", f.balance(f.alice))
	assert.Empty(t, f.rec.Events(), "aborted calls must not publish events")
	assertConserved(t, f.ledger)
}

func TestLedger_SwapAndLiquifySettings(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.ledger.UpdateSwapAndLiquifyEnabled(f.operator, true), types.ErrAccessDenied)
	assert.False(t, f.ledger.Policy().SwapAndLiquifyEnabled)
	assert.Equal(t, "500000000000000000000", types.FormatAmount(f.ledger.Policy().MinAmountToLiquify))

	require.NoError(t, f.ledger.TransferOperator(f.owner, f.operator))
	require.NoError(t, f.ledger.UpdateSwapAndLiquifyEnabled(f.operator, true))
	assert.True(t, f.ledger.Policy().SwapAndLiquifyEnabled)
	require.NoError(t, f.ledger.UpdateMinAmountToLiquify(f.operator, types.NewAmount(100)))
	assert.Equal(t, "100", types.FormatAmount(f.ledger.Policy().MinAmountToLiquify))

	assert.ErrorIs(t, f.ledger.UpdateRouter(f.operator, nil), types.ErrZeroAddress)
	assert.Nil(t, f.ledger.Router())
}

func TestLedger_ExportRestore(t *testing.T) {
	f := newFixture(t)
	f.mintAndHandOver(t, 10_000_000)
	require.NoError(t, f.ledger.Transfer(f.alice, f.bob, types.NewAmount(12345)))
	require.NoError(t, f.ledger.Approve(f.alice, f.carol, types.NewAmount(77)))
	require.NoError(t, f.ledger.SetExcludedFromAntiWhale(f.operator, f.carol, true))

	st := f.ledger.Export()
	restored, err := FromState(f.host, zaptest.NewLogger(t), st)
	require.NoError(t, err)

	assert.Equal(t, f.ledger.TotalSupply().String(), restored.TotalSupply().String())
	assert.Equal(t, "11728", types.FormatAmount(restored.BalanceOf(f.bob)))
	assert.Equal(t, "77", types.FormatAmount(restored.Allowance(f.alice, f.carol)))
	assert.Equal(t, f.operator, restored.Operator())
	assert.Equal(t, f.owner, restored.Owner())
	assert.True(t, restored.IsExcludedFromAntiWhale(f.carol))
	assert.Equal(t, st, restored.Export())

	st.Balances[f.bob.String()] = "1"
	_, err = FromState(f.host, zaptest.NewLogger(t), st)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestLedger_Burn(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Mint(f.owner, f.alice, types.NewAmount(1000)))

	require.NoError(t, f.ledger.Burn(f.alice, types.NewAmount(400)))
	assert.Equal(t, "600", f.balance(f.alice))
	assert.Equal(t, "500000000000000000000000000600", types.FormatAmount(f.ledger.TotalSupply()))

	err := f.ledger.Burn(f.alice, types.NewAmount(601))
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
	assertConserved(t, f.ledger)
}
