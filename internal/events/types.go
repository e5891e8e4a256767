// internal/events/types.go
package events

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// EventType represents the type of event.
type EventType string

const (
	// AnyEvent subscribes a handler to every event type.
	AnyEvent EventType = "*"

	// Token ledger events
	Transfer             EventType = "token.transfer"
	Approval             EventType = "token.approval"
	Mint                 EventType = "token.mint"
	PolicyUpdated        EventType = "token.policy_updated"
	SwapAndLiquify       EventType = "token.swap_and_liquify"
	OperatorTransferred  EventType = "access.operator_transferred"
	OwnershipTransferred EventType = "access.ownership_transferred"

	// Referral events
	ReferralRecorded           EventType = "referral.recorded"
	ReferralCommissionRecorded EventType = "referral.commission_recorded"
	OperatorUpdated            EventType = "referral.operator_updated"

	// Pool registry events
	PoolAdded           EventType = "farm.pool_added"
	PoolUpdated         EventType = "farm.pool_updated"
	Deposit             EventType = "farm.deposit"
	Withdraw            EventType = "farm.withdraw"
	EmergencyWithdraw   EventType = "farm.emergency_withdraw"
	RewardPaid          EventType = "farm.reward_paid"
	EmissionRateUpdated EventType = "farm.emission_rate_updated"
	SettingUpdated      EventType = "farm.setting_updated"

	// Pair events
	Swap             EventType = "dex.swap"
	LiquidityAdded   EventType = "dex.liquidity_added"
	LiquidityRemoved EventType = "dex.liquidity_removed"

	// Locker events
	Unlocked EventType = "locker.unlocked"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	BlockNumber() uint64
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
	Block     uint64
}

// NewBase stamps an event header.
func NewBase(t EventType, block uint64) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now().UTC(), Block: block}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// BlockNumber returns the block the emitting call executed in.
func (e BaseEvent) BlockNumber() uint64 {
	return e.Block
}

// TransferEvent is emitted for every balance move, including the tax and
// burn legs of a taxed transfer. Mints have From == ZeroAddress.
type TransferEvent struct {
	BaseEvent
	Token  types.Address
	From   types.Address
	To     types.Address
	Amount *uint256.Int
}

// ApprovalEvent is emitted when an allowance is set.
type ApprovalEvent struct {
	BaseEvent
	Token   types.Address
	Owner   types.Address
	Spender types.Address
	Amount  *uint256.Int
}

// MintEvent is emitted for minted supply.
type MintEvent struct {
	BaseEvent
	Token     types.Address
	To        types.Address
	Amount    *uint256.Int
	DevTo     types.Address
	DevAmount *uint256.Int
}

// PolicyUpdatedEvent is emitted when a transfer-policy parameter changes.
type PolicyUpdatedEvent struct {
	BaseEvent
	Token    types.Address
	Operator types.Address
	Field    string
	Previous string
	Current  string
}

// SwapAndLiquifyEvent is emitted after accrued tax was converted into liquidity.
type SwapAndLiquifyEvent struct {
	BaseEvent
	Token          types.Address
	TokensSwapped  *uint256.Int
	BaseReceived   *uint256.Int
	TokensIntoPool *uint256.Int
}

// RoleTransferredEvent is emitted when an owner or operator role moves.
type RoleTransferredEvent struct {
	BaseEvent
	Component types.Address
	Previous  types.Address
	Current   types.Address
}

// ReferralRecordedEvent is emitted when a user gets a referrer.
type ReferralRecordedEvent struct {
	BaseEvent
	User     types.Address
	Referrer types.Address
}

// ReferralCommissionRecordedEvent is emitted when commission accrues.
type ReferralCommissionRecordedEvent struct {
	BaseEvent
	Referrer types.Address
	Amount   *uint256.Int
}

// OperatorUpdatedEvent is emitted when the referral whitelist changes.
type OperatorUpdatedEvent struct {
	BaseEvent
	Operator types.Address
	Enabled  bool
}

// PoolEvent is emitted when a pool is added or reconfigured.
type PoolEvent struct {
	BaseEvent
	PoolID         int
	StakedToken    types.Address
	Weight         uint64
	DepositFeeRate uint64
}

// StakeEvent is emitted for deposits and withdrawals.
type StakeEvent struct {
	BaseEvent
	User   types.Address
	PoolID int
	Amount *uint256.Int
}

// RewardPaidEvent is emitted when settled rewards leave the registry.
type RewardPaidEvent struct {
	BaseEvent
	User       types.Address
	PoolID     int
	Amount     *uint256.Int
	Referrer   types.Address
	Commission *uint256.Int
}

// EmissionRateUpdatedEvent is emitted when rewardPerBlock changes.
type EmissionRateUpdatedEvent struct {
	BaseEvent
	Caller   types.Address
	Previous *uint256.Int
	Current  *uint256.Int
}

// SettingUpdatedEvent is emitted when a registry address or rate changes.
type SettingUpdatedEvent struct {
	BaseEvent
	Caller   types.Address
	Field    string
	Previous string
	Current  string
}

// SwapEvent is emitted for every pair swap. TokenIn is true when the trader
// sold tokens for the base asset.
type SwapEvent struct {
	BaseEvent
	Pair      types.Address
	Trader    types.Address
	TokenIn   bool
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
}

// LiquidityEvent is emitted when liquidity is added to or removed from a pair.
type LiquidityEvent struct {
	BaseEvent
	Pair        types.Address
	Provider    types.Address
	TokenAmount *uint256.Int
	BaseAmount  *uint256.Int
	Shares      *uint256.Int
}

// UnlockedEvent is emitted when the locker releases a token balance.
type UnlockedEvent struct {
	BaseEvent
	Token     types.Address
	Recipient types.Address
	Amount    *uint256.Int
}
