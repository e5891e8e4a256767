// internal/farm/state.go
package farm

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// PoolState is the persisted form of a pool.
type PoolState struct {
	StakedToken       types.Address `json:"staked_token"`
	Weight            uint64        `json:"weight"`
	LastRewardBlock   uint64        `json:"last_reward_block"`
	AccRewardPerShare string        `json:"acc_reward_per_share"`
	DepositFeeRate    uint64        `json:"deposit_fee_rate"`
	StakedSupply      string        `json:"staked_supply"`
}

// UserState is the persisted form of one stake.
type UserState struct {
	PoolID     int           `json:"pid"`
	User       types.Address `json:"user"`
	Amount     string        `json:"amount"`
	RewardDebt string        `json:"reward_debt"`
}

// State is the persisted form of a Registry.
type State struct {
	Address                types.Address `json:"address"`
	Owner                  types.Address `json:"owner"`
	Operator               types.Address `json:"operator"`
	RewardPerBlock         string        `json:"reward_per_block"`
	StartBlock             uint64        `json:"start_block"`
	DevAddress             types.Address `json:"dev_address"`
	FeeAddress             types.Address `json:"fee_address"`
	ReferralCommissionRate uint64        `json:"referral_commission_rate"`
	RewardReserve          string        `json:"reward_reserve"`
	Pools                  []PoolState   `json:"pools"`
	Users                  []UserState   `json:"users"`
}

// Export captures the registry state. Users are ordered by pool, then address.
func (r *Registry) Export() *State {
	st := &State{
		Address:                r.address,
		Owner:                  r.roles.Owner(),
		Operator:               r.roles.Operator(),
		RewardPerBlock:         types.FormatAmount(&r.rewardPerBlock),
		StartBlock:             r.startBlock,
		DevAddress:             r.devAddress,
		FeeAddress:             r.feeAddress,
		ReferralCommissionRate: r.referralCommissionRate,
		RewardReserve:          types.FormatAmount(&r.rewardReserve),
	}
	for _, p := range r.pools {
		st.Pools = append(st.Pools, PoolState{
			StakedToken:       p.token.Address(),
			Weight:            p.weight,
			LastRewardBlock:   p.lastRewardBlock,
			AccRewardPerShare: p.accRewardPerShare.String(),
			DepositFeeRate:    p.depositFeeRate,
			StakedSupply:      types.FormatAmount(&p.stakedSupply),
		})
	}
	for k, u := range r.users {
		st.Users = append(st.Users, UserState{
			PoolID:     k.pid,
			User:       k.user,
			Amount:     types.FormatAmount(&u.amount),
			RewardDebt: types.FormatAmount(&u.rewardDebt),
		})
	}
	sort.Slice(st.Users, func(i, j int) bool {
		if st.Users[i].PoolID != st.Users[j].PoolID {
			return st.Users[i].PoolID < st.Users[j].PoolID
		}
		return st.Users[i].User.String() < st.Users[j].User.String()
	})
	return st
}

// FromState rebuilds a registry. resolve maps a staked token address back to
// the live token.
func FromState(host *chain.Host, logger *zap.Logger, st *State, reward RewardToken, referrals Referrals,
	resolve func(types.Address) (StakeToken, bool)) (*Registry, error) {
	rpb, err := types.ParseAmount(st.RewardPerBlock)
	if err != nil {
		return nil, err
	}
	r, err := New(host, logger, st.Address, st.Owner, reward, referrals, Config{
		RewardPerBlock: rpb,
		StartBlock:     st.StartBlock,
		DevAddress:     st.DevAddress,
		FeeAddress:     st.FeeAddress,
	})
	if err != nil {
		return nil, err
	}
	r.roles.Restore(st.Owner, st.Operator)
	if st.ReferralCommissionRate > MaxReferralCommissionRate {
		return nil, fmt.Errorf("%w: referral commission %d", types.ErrInvalidParameter, st.ReferralCommissionRate)
	}
	r.referralCommissionRate = st.ReferralCommissionRate

	reserve, err := types.ParseAmount(st.RewardReserve)
	if err != nil {
		return nil, err
	}
	r.rewardReserve = *reserve

	for i, ps := range st.Pools {
		tok, ok := resolve(ps.StakedToken)
		if !ok {
			return nil, fmt.Errorf("%w: pool %d stakes unknown token %s", types.ErrInvalidParameter, i, ps.StakedToken)
		}
		acc, err := types.ParseAmount(ps.AccRewardPerShare)
		if err != nil {
			return nil, err
		}
		staked, err := types.ParseAmount(ps.StakedSupply)
		if err != nil {
			return nil, err
		}
		p := &pool{
			token:             tok,
			weight:            ps.Weight,
			lastRewardBlock:   ps.LastRewardBlock,
			accRewardPerShare: types.NewAccumulator(acc),
			depositFeeRate:    ps.DepositFeeRate,
		}
		p.stakedSupply = *staked
		r.pools = append(r.pools, p)
		if r.totalWeight, err = addWeight(r.totalWeight, ps.Weight); err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
	}

	sums := make([]uint256.Int, len(r.pools))
	for _, us := range st.Users {
		if us.PoolID < 0 || us.PoolID >= len(r.pools) {
			return nil, fmt.Errorf("%w: stake in pool %d", types.ErrUnknownPool, us.PoolID)
		}
		amount, err := types.ParseAmount(us.Amount)
		if err != nil {
			return nil, err
		}
		debt, err := types.ParseAmount(us.RewardDebt)
		if err != nil {
			return nil, err
		}
		var u userInfo
		u.amount = *amount
		u.rewardDebt = *debt
		r.users[userKey{us.PoolID, us.User}] = u
		sums[us.PoolID].Add(&sums[us.PoolID], amount)
	}
	for pid, p := range r.pools {
		if !sums[pid].Eq(&p.stakedSupply) {
			return nil, fmt.Errorf("%w: pool %d stakes sum to %s, staked supply %s", types.ErrInvalidParameter,
				pid, types.FormatAmount(&sums[pid]), types.FormatAmount(&p.stakedSupply))
		}
	}
	return r, nil
}
