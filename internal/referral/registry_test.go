package referral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

type accounts struct {
	alice, bob, carol, referrer, operator, owner types.Address
}

func setup(t *testing.T) (*Registry, *events.Recorder, accounts) {
	t.Helper()
	rec := &events.Recorder{}
	host := chain.NewHost(zaptest.NewLogger(t), rec, 1)
	acc := accounts{
		alice:    types.NewAccount(),
		bob:      types.NewAccount(),
		carol:    types.NewAccount(),
		referrer: types.NewAccount(),
		operator: types.NewAccount(),
		owner:    types.NewAccount(),
	}
	return New(host, zaptest.NewLogger(t), types.NewAccount(), acc.owner), rec, acc
}

func TestRegistry_OnlyOwnerUpdatesOperator(t *testing.T) {
	r, _, a := setup(t)

	assert.False(t, r.IsOperator(a.operator))
	err := r.RecordReferral(a.operator, a.alice, a.referrer)
	require.ErrorIs(t, err, types.ErrAccessDenied)

	err = r.UpdateOperator(a.carol, a.operator, true)
	require.ErrorIs(t, err, types.ErrAccessDenied)

	require.NoError(t, r.UpdateOperator(a.owner, a.operator, true))
	assert.True(t, r.IsOperator(a.operator))
	assert.Equal(t, []types.Address{a.operator}, r.Operators())

	require.NoError(t, r.UpdateOperator(a.owner, a.operator, false))
	assert.False(t, r.IsOperator(a.operator))
	err = r.RecordReferral(a.operator, a.alice, a.referrer)
	assert.ErrorIs(t, err, types.ErrAccessDenied)
}

func TestRegistry_RecordReferral(t *testing.T) {
	r, rec, a := setup(t)
	require.NoError(t, r.UpdateOperator(a.owner, a.operator, true))
	rec.Reset()

	// invalid input is accepted without effect
	require.NoError(t, r.RecordReferral(a.operator, types.ZeroAddress, a.referrer))
	require.NoError(t, r.RecordReferral(a.operator, a.alice, types.ZeroAddress))
	require.NoError(t, r.RecordReferral(a.operator, types.ZeroAddress, types.ZeroAddress))
	require.NoError(t, r.RecordReferral(a.operator, a.alice, a.alice))
	assert.Equal(t, types.ZeroAddress, r.GetReferrer(a.alice))
	assert.Equal(t, uint64(0), r.ReferralsCount(a.referrer))
	assert.Empty(t, rec.Events())

	require.NoError(t, r.RecordReferral(a.operator, a.alice, a.referrer))
	assert.Equal(t, a.referrer, r.GetReferrer(a.alice))
	assert.Equal(t, uint64(1), r.ReferralsCount(a.referrer))

	// first referrer sticks
	assert.Equal(t, uint64(0), r.ReferralsCount(a.bob))
	require.NoError(t, r.RecordReferral(a.operator, a.alice, a.bob))
	assert.Equal(t, uint64(0), r.ReferralsCount(a.bob))
	assert.Equal(t, a.referrer, r.GetReferrer(a.alice))

	require.NoError(t, r.RecordReferral(a.operator, a.carol, a.referrer))
	assert.Equal(t, a.referrer, r.GetReferrer(a.carol))
	assert.Equal(t, uint64(2), r.ReferralsCount(a.referrer))

	assert.Len(t, rec.OfType(events.ReferralRecorded), 2)
}

func TestRegistry_RecordReferralCommission(t *testing.T) {
	r, _, a := setup(t)
	assert.True(t, r.TotalReferralCommissions(a.referrer).IsZero())

	err := r.RecordReferralCommission(a.operator, a.referrer, types.NewAmount(1))
	require.ErrorIs(t, err, types.ErrAccessDenied)
	require.NoError(t, r.UpdateOperator(a.owner, a.operator, true))

	require.NoError(t, r.RecordReferralCommission(a.operator, a.referrer, types.NewAmount(1)))
	assert.Equal(t, uint64(1), r.TotalReferralCommissions(a.referrer).Uint64())

	require.NoError(t, r.RecordReferralCommission(a.operator, a.referrer, types.NewAmount(0)))
	assert.Equal(t, uint64(1), r.TotalReferralCommissions(a.referrer).Uint64())

	require.NoError(t, r.RecordReferralCommission(a.operator, a.referrer, types.NewAmount(111)))
	assert.Equal(t, uint64(112), r.TotalReferralCommissions(a.referrer).Uint64())

	require.NoError(t, r.RecordReferralCommission(a.operator, types.ZeroAddress, types.NewAmount(100)))
	assert.True(t, r.TotalReferralCommissions(types.ZeroAddress).IsZero())
}

func TestRegistry_ExportRestore(t *testing.T) {
	r, _, a := setup(t)
	require.NoError(t, r.UpdateOperator(a.owner, a.operator, true))
	require.NoError(t, r.RecordReferral(a.operator, a.alice, a.referrer))
	require.NoError(t, r.RecordReferralCommission(a.operator, a.referrer, types.NewAmount(42)))

	st := r.Export()
	restored, err := FromState(r.host, zaptest.NewLogger(t), st)
	require.NoError(t, err)

	assert.Equal(t, a.referrer, restored.GetReferrer(a.alice))
	assert.Equal(t, uint64(1), restored.ReferralsCount(a.referrer))
	assert.Equal(t, uint64(42), restored.TotalReferralCommissions(a.referrer).Uint64())
	assert.True(t, restored.IsOperator(a.operator))
	assert.Equal(t, a.owner, restored.Owner())
	assert.Equal(t, st, restored.Export())
}
