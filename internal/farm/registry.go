// internal/farm/registry.go
package farm

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/access"
	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

const (
	// MaxDepositFeeRate bounds a pool's deposit fee, in bps.
	MaxDepositFeeRate uint64 = 1000
	// MaxReferralCommissionRate bounds the referral cut of a reward, in bps.
	MaxReferralCommissionRate uint64 = 1000
	// DefaultReferralCommissionRate is 1% of every settled reward.
	DefaultReferralCommissionRate uint64 = 100
)

// StakeToken is what a pool accepts as stake.
type StakeToken interface {
	Address() types.Address
	BalanceOf(addr types.Address) *uint256.Int
	Transfer(caller, to types.Address, amount *uint256.Int) error
	TransferFrom(caller, from, to types.Address, amount *uint256.Int) error
}

// RewardToken is the emitted token. The registry account must hold its
// operator role.
type RewardToken interface {
	StakeToken
	MintableSupply() *uint256.Int
	MintWithDevReward(caller, to, devTo types.Address, amount *uint256.Int) (token.DevSplit, error)
}

// Referrals is the referral registry as seen by the pool registry.
type Referrals interface {
	Address() types.Address
	RecordReferral(caller, user, referrer types.Address) error
	RecordReferralCommission(caller, referrer types.Address, amount *uint256.Int) error
	GetReferrer(user types.Address) types.Address
}

// Config holds construction parameters.
type Config struct {
	RewardPerBlock *uint256.Int
	StartBlock     uint64
	DevAddress     types.Address
	FeeAddress     types.Address
}

type pool struct {
	token             StakeToken
	weight            uint64
	lastRewardBlock   uint64
	accRewardPerShare types.Accumulator
	depositFeeRate    uint64
	stakedSupply      uint256.Int
}

type userKey struct {
	pid  int
	user types.Address
}

// UserInfo is one staker's position in a pool.
type UserInfo struct {
	Amount     *uint256.Int
	RewardDebt *uint256.Int
}

type userInfo struct {
	amount     uint256.Int
	rewardDebt uint256.Int
}

// PoolInfo is a read-only copy of a pool.
type PoolInfo struct {
	StakedToken       types.Address
	Weight            uint64
	LastRewardBlock   uint64
	AccRewardPerShare types.Accumulator
	DepositFeeRate    uint64
	StakedSupply      *uint256.Int
}

// Registry is the staking pool registry. It emits reward tokens per block,
// split across pools by weight, and settles each staker's share through a
// reward-per-share accumulator.
type Registry struct {
	host    *chain.Host
	logger  *zap.Logger
	roles   *access.Roles
	address types.Address

	reward    RewardToken
	referrals Referrals

	rewardPerBlock         uint256.Int
	startBlock             uint64
	totalWeight            uint64
	devAddress             types.Address
	feeAddress             types.Address
	referralCommissionRate uint64

	pools         []*pool
	users         map[userKey]userInfo
	rewardReserve uint256.Int
	entered       bool
}

// New creates an empty registry at address. referrals may be nil.
func New(host *chain.Host, logger *zap.Logger, address, owner types.Address, reward RewardToken, referrals Referrals, cfg Config) (*Registry, error) {
	if types.IsZero(address) || types.IsZero(owner) {
		return nil, fmt.Errorf("%w: registry and owner address are required", types.ErrZeroAddress)
	}
	if types.IsZero(cfg.DevAddress) || types.IsZero(cfg.FeeAddress) {
		return nil, fmt.Errorf("%w: dev and fee address are required", types.ErrZeroAddress)
	}
	if cfg.RewardPerBlock == nil {
		return nil, fmt.Errorf("%w: reward per block is not set", types.ErrInvalidParameter)
	}
	r := &Registry{
		host:                   host,
		logger:                 logger.Named("farm"),
		roles:                  access.NewRoles(host, address, owner),
		address:                address,
		reward:                 reward,
		referrals:              referrals,
		startBlock:             cfg.StartBlock,
		devAddress:             cfg.DevAddress,
		feeAddress:             cfg.FeeAddress,
		referralCommissionRate: DefaultReferralCommissionRate,
		users:                  make(map[userKey]userInfo),
	}
	r.rewardPerBlock.Set(cfg.RewardPerBlock)

	r.logger.Info("Pool registry created",
		zap.Stringer("address", address),
		zap.Stringer("reward_token", reward.Address()),
		zap.String("reward_per_block", types.FormatAmount(cfg.RewardPerBlock)),
		zap.Uint64("start_block", cfg.StartBlock))
	return r, nil
}

// Address returns the registry account. It holds stakes and the reward reserve.
func (r *Registry) Address() types.Address { return r.address }

// Owner returns the owner.
func (r *Registry) Owner() types.Address { return r.roles.Owner() }

// Operator returns the operator.
func (r *Registry) Operator() types.Address { return r.roles.Operator() }

// PoolLength returns the number of pools.
func (r *Registry) PoolLength() int { return len(r.pools) }

// TotalWeight returns the sum of all pool weights.
func (r *Registry) TotalWeight() uint64 { return r.totalWeight }

// RewardPerBlock returns the current emission rate.
func (r *Registry) RewardPerBlock() *uint256.Int { return r.rewardPerBlock.Clone() }

// StartBlock returns the configured emission start.
func (r *Registry) StartBlock() uint64 { return r.startBlock }

// RewardReserve returns minted rewards not yet paid out.
func (r *Registry) RewardReserve() *uint256.Int { return r.rewardReserve.Clone() }

// DevAddress returns the dev-split recipient.
func (r *Registry) DevAddress() types.Address { return r.devAddress }

// FeeAddress returns the deposit fee recipient.
func (r *Registry) FeeAddress() types.Address { return r.feeAddress }

// ReferralCommissionRate returns the referral cut in bps.
func (r *Registry) ReferralCommissionRate() uint64 { return r.referralCommissionRate }

// Referrals returns the referral registry, or nil.
func (r *Registry) Referrals() Referrals { return r.referrals }

// PoolInfo returns a copy of pool pid.
func (r *Registry) PoolInfo(pid int) (PoolInfo, error) {
	p, err := r.pool(pid)
	if err != nil {
		return PoolInfo{}, err
	}
	return PoolInfo{
		StakedToken:       p.token.Address(),
		Weight:            p.weight,
		LastRewardBlock:   p.lastRewardBlock,
		AccRewardPerShare: p.accRewardPerShare,
		DepositFeeRate:    p.depositFeeRate,
		StakedSupply:      p.stakedSupply.Clone(),
	}, nil
}

// UserInfo returns user's position in pool pid.
func (r *Registry) UserInfo(pid int, user types.Address) (UserInfo, error) {
	if _, err := r.pool(pid); err != nil {
		return UserInfo{}, err
	}
	u := r.users[userKey{pid, user}]
	return UserInfo{Amount: u.amount.Clone(), RewardDebt: u.rewardDebt.Clone()}, nil
}

func (r *Registry) pool(pid int) (*pool, error) {
	if pid < 0 || pid >= len(r.pools) {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownPool, pid)
	}
	return r.pools[pid], nil
}

// guarded runs fn as one call that cannot be re-entered.
func (r *Registry) guarded(op string, caller types.Address, fn func() error) error {
	return r.host.Call(op, caller, func() error {
		if r.entered {
			return fmt.Errorf("%w: %s", types.ErrReentrantCall, op)
		}
		chain.Set(r.host, &r.entered, true)
		if err := fn(); err != nil {
			return err
		}
		chain.Set(r.host, &r.entered, false)
		return nil
	})
}
