// internal/farm/pool.go
package farm

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// UpdatePool brings pool pid's accumulator up to the current block. Anyone
// may call it.
func (r *Registry) UpdatePool(caller types.Address, pid int) error {
	return r.host.Call("farm.updatePool", caller, func() error {
		return r.updatePool(pid)
	})
}

// MassUpdatePools updates every pool.
func (r *Registry) MassUpdatePools(caller types.Address) error {
	return r.host.Call("farm.massUpdatePools", caller, r.massUpdatePools)
}

func (r *Registry) massUpdatePools() error {
	for pid := range r.pools {
		if err := r.updatePool(pid); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) updatePool(pid int) error {
	p, err := r.pool(pid)
	if err != nil {
		return err
	}
	block := r.host.BlockNumber()
	if block <= p.lastRewardBlock {
		return nil
	}
	if p.stakedSupply.IsZero() || p.weight == 0 {
		chain.Set(r.host, &p.lastRewardBlock, block)
		return nil
	}

	emission, err := r.poolEmission(p, block)
	if err != nil {
		return err
	}
	if !emission.IsZero() {
		split, err := r.reward.MintWithDevReward(r.address, r.address, r.devAddress, emission)
		if err != nil {
			return err
		}
		acc, err := p.accRewardPerShare.Increase(emission, &p.stakedSupply)
		if err != nil {
			return err
		}
		reserve, err := types.Add(&r.rewardReserve, split.Primary)
		if err != nil {
			return err
		}
		chain.Set(r.host, &p.accRewardPerShare, acc)
		chain.Set(r.host, &r.rewardReserve, *reserve)

		r.logger.Debug("Pool rewards minted",
			zap.Int("pid", pid),
			zap.Uint64("blocks", block-p.lastRewardBlock),
			zap.String("primary", types.FormatAmount(split.Primary)),
			zap.String("dev", types.FormatAmount(split.Dev)),
			zap.Stringer("acc_reward_per_share", acc))
	}
	chain.Set(r.host, &p.lastRewardBlock, block)
	return nil
}

// poolEmission returns the reward due to p for the blocks up to block,
// clamped to what the reward token can still mint.
func (r *Registry) poolEmission(p *pool, block uint64) (*uint256.Int, error) {
	if r.totalWeight == 0 {
		return new(uint256.Int), nil
	}
	total, overflow := new(uint256.Int).MulOverflow(&r.rewardPerBlock, uint256.NewInt(block-p.lastRewardBlock))
	if overflow {
		return nil, types.ErrArithmeticOverflow
	}
	emission, err := types.MulDiv(total, uint256.NewInt(p.weight), uint256.NewInt(r.totalWeight))
	if err != nil {
		return nil, err
	}

	if mintable := r.reward.MintableSupply(); emission.Gt(mintable) {
		r.logger.Debug("Emission clamped to remaining supply",
			zap.String("due", types.FormatAmount(emission)),
			zap.String("mintable", types.FormatAmount(mintable)))
		emission = mintable
	}
	return emission, nil
}

// PendingReward returns user's accrued share of pool pid's emission up to the
// current block, before any referral commission. Settlement pays at most the
// reward reserve.
func (r *Registry) PendingReward(pid int, user types.Address) (*uint256.Int, error) {
	p, err := r.pool(pid)
	if err != nil {
		return nil, err
	}
	acc := p.accRewardPerShare
	block := r.host.BlockNumber()
	if block > p.lastRewardBlock && !p.stakedSupply.IsZero() && p.weight > 0 {
		emission, err := r.poolEmission(p, block)
		if err != nil {
			return nil, err
		}
		if acc, err = acc.Increase(emission, &p.stakedSupply); err != nil {
			return nil, err
		}
	}
	u := r.users[userKey{pid, user}]
	return r.pending(acc, &u)
}

func (r *Registry) pending(acc types.Accumulator, u *userInfo) (*uint256.Int, error) {
	share, err := acc.Share(&u.amount)
	if err != nil {
		return nil, err
	}
	return types.Sub(share, &u.rewardDebt)
}
