// internal/farm/admin.go
package farm

import (
	"fmt"
	"math/bits"
	"strconv"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Add appends a pool staking stakeToken. Owner or operator only.
func (r *Registry) Add(caller types.Address, weight uint64, stakeToken StakeToken, depositFeeRate, startBlock uint64, withUpdate bool) (int, error) {
	pid := -1
	err := r.host.Call("farm.add", caller, func() error {
		if err := r.roles.RequireOwnerOrOperator(caller); err != nil {
			return err
		}
		if stakeToken == nil || types.IsZero(stakeToken.Address()) {
			return fmt.Errorf("%w: staked token is required", types.ErrZeroAddress)
		}
		if depositFeeRate > MaxDepositFeeRate {
			return fmt.Errorf("%w: deposit fee %d exceeds %d bps", types.ErrInvalidParameter, depositFeeRate, MaxDepositFeeRate)
		}
		for i, p := range r.pools {
			if p.token.Address() == stakeToken.Address() {
				return fmt.Errorf("%w: token %s already staked in pool %d", types.ErrInvalidParameter, stakeToken.Address(), i)
			}
		}
		if withUpdate {
			if err := r.massUpdatePools(); err != nil {
				return err
			}
		}

		last := startBlock
		if block := r.host.BlockNumber(); block > last {
			last = block
		}
		total, err := addWeight(r.totalWeight, weight)
		if err != nil {
			return err
		}
		chain.Set(r.host, &r.totalWeight, total)
		chain.Append(r.host, &r.pools, &pool{
			token:           stakeToken,
			weight:          weight,
			lastRewardBlock: last,
			depositFeeRate:  depositFeeRate,
		})
		pid = len(r.pools) - 1

		r.logger.Info("Pool added",
			zap.Int("pid", pid),
			zap.Stringer("token", stakeToken.Address()),
			zap.Uint64("weight", weight),
			zap.Uint64("deposit_fee_bps", depositFeeRate),
			zap.Uint64("last_reward_block", last))
		r.host.Emit(&events.PoolEvent{
			BaseEvent:      events.NewBase(events.PoolAdded, r.host.BlockNumber()),
			PoolID:         pid,
			StakedToken:    stakeToken.Address(),
			Weight:         weight,
			DepositFeeRate: depositFeeRate,
		})
		return nil
	})
	if err != nil {
		return -1, err
	}
	return pid, nil
}

// Set changes a pool's weight and deposit fee. Owner or operator only.
// A zero weight stops accrual but keeps the pool and its stakes.
func (r *Registry) Set(caller types.Address, pid int, weight, depositFeeRate uint64, withUpdate bool) error {
	return r.host.Call("farm.set", caller, func() error {
		if err := r.roles.RequireOwnerOrOperator(caller); err != nil {
			return err
		}
		p, err := r.pool(pid)
		if err != nil {
			return err
		}
		if depositFeeRate > MaxDepositFeeRate {
			return fmt.Errorf("%w: deposit fee %d exceeds %d bps", types.ErrInvalidParameter, depositFeeRate, MaxDepositFeeRate)
		}
		if withUpdate {
			if err := r.massUpdatePools(); err != nil {
				return err
			}
		}

		total, err := addWeight(r.totalWeight-p.weight, weight)
		if err != nil {
			return err
		}
		chain.Set(r.host, &r.totalWeight, total)
		chain.Set(r.host, &p.weight, weight)
		chain.Set(r.host, &p.depositFeeRate, depositFeeRate)

		r.logger.Info("Pool updated",
			zap.Int("pid", pid),
			zap.Uint64("weight", weight),
			zap.Uint64("deposit_fee_bps", depositFeeRate))
		r.host.Emit(&events.PoolEvent{
			BaseEvent:      events.NewBase(events.PoolUpdated, r.host.BlockNumber()),
			PoolID:         pid,
			StakedToken:    p.token.Address(),
			Weight:         weight,
			DepositFeeRate: depositFeeRate,
		})
		return nil
	})
}

// UpdateEmissionRate settles every pool at the old rate, then switches to
// rewardPerBlock. Owner-only.
func (r *Registry) UpdateEmissionRate(caller types.Address, rewardPerBlock *uint256.Int) error {
	return r.host.Call("farm.updateEmissionRate", caller, func() error {
		if err := r.roles.RequireOwner(caller); err != nil {
			return err
		}
		if err := r.massUpdatePools(); err != nil {
			return err
		}
		prev := r.rewardPerBlock.Clone()
		chain.Set(r.host, &r.rewardPerBlock, *rewardPerBlock)

		r.logger.Info("Emission rate updated",
			zap.String("previous", types.FormatAmount(prev)),
			zap.String("current", types.FormatAmount(rewardPerBlock)))
		r.host.Emit(&events.EmissionRateUpdatedEvent{
			BaseEvent: events.NewBase(events.EmissionRateUpdated, r.host.BlockNumber()),
			Caller:    caller,
			Previous:  prev,
			Current:   rewardPerBlock.Clone(),
		})
		return nil
	})
}

// SetReferralCommissionRate sets the referral cut in bps. Owner-only.
func (r *Registry) SetReferralCommissionRate(caller types.Address, rate uint64) error {
	return r.host.Call("farm.setReferralCommissionRate", caller, func() error {
		if err := r.roles.RequireOwner(caller); err != nil {
			return err
		}
		if rate > MaxReferralCommissionRate {
			return fmt.Errorf("%w: referral commission %d exceeds %d bps", types.ErrInvalidParameter, rate, MaxReferralCommissionRate)
		}
		prev := r.referralCommissionRate
		chain.Set(r.host, &r.referralCommissionRate, rate)
		r.settingChanged(caller, "referral_commission_rate", strconv.FormatUint(prev, 10), strconv.FormatUint(rate, 10))
		return nil
	})
}

// SetDevAddress changes the dev-split recipient. Owner-only.
func (r *Registry) SetDevAddress(caller, dev types.Address) error {
	return r.host.Call("farm.setDevAddress", caller, func() error {
		if err := r.roles.RequireOwner(caller); err != nil {
			return err
		}
		if types.IsZero(dev) {
			return fmt.Errorf("%w: dev address", types.ErrZeroAddress)
		}
		prev := r.devAddress
		chain.Set(r.host, &r.devAddress, dev)
		r.settingChanged(caller, "dev_address", prev.String(), dev.String())
		return nil
	})
}

// SetFeeAddress changes the deposit fee recipient. Owner-only.
func (r *Registry) SetFeeAddress(caller, fee types.Address) error {
	return r.host.Call("farm.setFeeAddress", caller, func() error {
		if err := r.roles.RequireOwner(caller); err != nil {
			return err
		}
		if types.IsZero(fee) {
			return fmt.Errorf("%w: fee address", types.ErrZeroAddress)
		}
		prev := r.feeAddress
		chain.Set(r.host, &r.feeAddress, fee)
		r.settingChanged(caller, "fee_address", prev.String(), fee.String())
		return nil
	})
}

// SetReferralRegistry replaces the referral registry. A nil registry turns
// referral tracking off. Owner or operator only.
func (r *Registry) SetReferralRegistry(caller types.Address, referrals Referrals) error {
	return r.host.Call("farm.setReferralRegistry", caller, func() error {
		if err := r.roles.RequireOwnerOrOperator(caller); err != nil {
			return err
		}
		prev, next := "none", "none"
		if r.referrals != nil {
			prev = r.referrals.Address().String()
		}
		if referrals != nil {
			next = referrals.Address().String()
		}
		chain.Set(r.host, &r.referrals, referrals)
		r.settingChanged(caller, "referral_registry", prev, next)
		return nil
	})
}

// TransferOperator hands the operator role to next. Operator-only.
func (r *Registry) TransferOperator(caller, next types.Address) error {
	return r.host.Call("farm.transferOperator", caller, func() error {
		return r.roles.TransferOperator(caller, next)
	})
}

// TransferOwnership hands the owner role to next. Owner-only.
func (r *Registry) TransferOwnership(caller, next types.Address) error {
	return r.host.Call("farm.transferOwnership", caller, func() error {
		return r.roles.TransferOwnership(caller, next)
	})
}

// AsOperator runs fn with the registry's own account, which is the operator
// of the reward token once the registry is live. It lets the owner reach the
// token's operator-only settings. Owner-only.
func (r *Registry) AsOperator(caller types.Address, op string, fn func(self types.Address) error) error {
	return r.host.Call("farm.asOperator", caller, func() error {
		if err := r.roles.RequireOwner(caller); err != nil {
			return err
		}
		r.logger.Info("Forwarding operator call", zap.String("op", op), zap.Stringer("owner", caller))
		return fn(r.address)
	})
}

// addWeight returns total + weight, failing instead of wrapping.
func addWeight(total, weight uint64) (uint64, error) {
	sum, carry := bits.Add64(total, weight, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: total weight %d + %d", types.ErrArithmeticOverflow, total, weight)
	}
	return sum, nil
}

func (r *Registry) settingChanged(caller types.Address, field, prev, next string) {
	r.logger.Info("Setting updated",
		zap.String("field", field),
		zap.String("previous", prev),
		zap.String("current", next))
	r.host.Emit(&events.SettingUpdatedEvent{
		BaseEvent: events.NewBase(events.SettingUpdated, r.host.BlockNumber()),
		Caller:    caller,
		Field:     field,
		Previous:  prev,
		Current:   next,
	})
}
