// internal/token/ledger.go
package token

import (
	"fmt"

	mapset "github.com/deckarep/golang-set"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/access"
	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

const (
	// MaxTransferTaxRate is the ceiling for the transfer tax, in bps (10%).
	MaxTransferTaxRate uint64 = 1000
	// MaxBurnRate is the ceiling for the burned share of the tax, in percent.
	MaxBurnRate uint64 = 100
	// MinMaxTransferAmountRate and MaxMaxTransferAmountRate bound the anti-whale rate, in bps.
	MinMaxTransferAmountRate uint64 = 50
	MaxMaxTransferAmountRate uint64 = 10_000

	// DevRewardNumerator / DevRewardDenominator is the dev share of a
	// MintWithDevReward amount: 20 of every 110 units.
	DevRewardNumerator   uint64 = 20
	DevRewardDenominator uint64 = 110
)

// Policy is the fee-on-transfer and anti-whale configuration.
type Policy struct {
	TransferTaxRate       uint64 // bps of the amount
	BurnRate              uint64 // percent of the tax
	MaxTransferAmountRate uint64 // bps of circulating supply
	SwapAndLiquifyEnabled bool
	MinAmountToLiquify    *uint256.Int
}

// Config describes a ledger at construction.
type Config struct {
	Name        string
	Symbol      string
	Decimals    uint8
	Cap         *uint256.Int
	GenesisBurn *uint256.Int
	Policy      Policy
}

// DefaultConfig returns the production defaults of the reward token.
func DefaultConfig() Config {
	return Config{
		Name:        "Farm Token",
		Symbol:      "FARM",
		Decimals:    18,
		Cap:         types.Units(1_000_000_000_000, 18),
		GenesisBurn: types.Units(500_000_000_000, 18),
		Policy: Policy{
			TransferTaxRate:       500,
			BurnRate:              20,
			MaxTransferAmountRate: 100,
			SwapAndLiquifyEnabled: false,
			MinAmountToLiquify:    types.Units(500, 18),
		},
	}
}

// ValidatePolicy checks every bound of p.
func ValidatePolicy(p Policy) error {
	if p.TransferTaxRate > MaxTransferTaxRate {
		return fmt.Errorf("%w: transfer tax rate %d exceeds %d bps", types.ErrInvalidParameter, p.TransferTaxRate, MaxTransferTaxRate)
	}
	if p.BurnRate > MaxBurnRate {
		return fmt.Errorf("%w: burn rate %d exceeds %d%%", types.ErrInvalidParameter, p.BurnRate, MaxBurnRate)
	}
	if p.MaxTransferAmountRate < MinMaxTransferAmountRate || p.MaxTransferAmountRate > MaxMaxTransferAmountRate {
		return fmt.Errorf("%w: max transfer amount rate %d outside [%d, %d] bps", types.ErrInvalidParameter,
			p.MaxTransferAmountRate, MinMaxTransferAmountRate, MaxMaxTransferAmountRate)
	}
	if p.MinAmountToLiquify == nil {
		return fmt.Errorf("%w: min amount to liquify is not set", types.ErrInvalidParameter)
	}
	return nil
}

type allowanceKey struct {
	owner   types.Address
	spender types.Address
}

// Ledger is a capped balance ledger with a fee-on-transfer policy, an
// anti-whale cap, a dev-split mint and a deferred auto-liquify step.
// It is not safe for concurrent use; see chain.Host.
type Ledger struct {
	host   *chain.Host
	logger *zap.Logger
	roles  *access.Roles

	address  types.Address
	name     string
	symbol   string
	decimals uint8

	cap         uint256.Int
	totalSupply uint256.Int
	balances    map[types.Address]uint256.Int
	allowances  map[allowanceKey]uint256.Int

	policy           Policy
	excluded         mapset.Set
	router           Router
	inSwapAndLiquify bool
}

// New creates a ledger at address owned (and operated) by owner. The genesis
// burn allocation is credited to the burn address and counts toward supply.
func New(host *chain.Host, logger *zap.Logger, address, owner types.Address, cfg Config) (*Ledger, error) {
	if types.IsZero(address) || types.IsZero(owner) {
		return nil, fmt.Errorf("%w: ledger and owner address are required", types.ErrZeroAddress)
	}
	if cfg.Cap == nil || cfg.Cap.IsZero() {
		return nil, fmt.Errorf("%w: cap must be positive", types.ErrInvalidParameter)
	}
	if err := ValidatePolicy(cfg.Policy); err != nil {
		return nil, err
	}

	l := &Ledger{
		host:       host,
		logger:     logger.Named("token").With(zap.String("symbol", cfg.Symbol)),
		roles:      access.NewRoles(host, address, owner),
		address:    address,
		name:       cfg.Name,
		symbol:     cfg.Symbol,
		decimals:   cfg.Decimals,
		balances:   make(map[types.Address]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
		excluded:   mapset.NewThreadUnsafeSet(),
	}
	l.cap.Set(cfg.Cap)
	l.policy = cfg.Policy
	l.policy.MinAmountToLiquify = cfg.Policy.MinAmountToLiquify.Clone()

	if cfg.GenesisBurn != nil && !cfg.GenesisBurn.IsZero() {
		if err := l.mint(types.BurnAddress, cfg.GenesisBurn); err != nil {
			return nil, fmt.Errorf("genesis burn: %w", err)
		}
	}

	l.logger.Info("Token ledger created",
		zap.Stringer("address", address),
		zap.Stringer("owner", owner),
		zap.String("cap", types.FormatAmount(&l.cap)))
	return l, nil
}

// Address returns the ledger's own account. Accrued tax is held there.
func (l *Ledger) Address() types.Address { return l.address }

// Name returns the token name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the display precision.
func (l *Ledger) Decimals() uint8 { return l.decimals }

// Owner returns the owner role holder.
func (l *Ledger) Owner() types.Address { return l.roles.Owner() }

// Operator returns the operator role holder.
func (l *Ledger) Operator() types.Address { return l.roles.Operator() }

// Cap returns the immutable supply cap.
func (l *Ledger) Cap() *uint256.Int { return l.cap.Clone() }

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() *uint256.Int { return l.totalSupply.Clone() }

// MintableSupply returns cap - totalSupply.
func (l *Ledger) MintableSupply() *uint256.Int {
	return new(uint256.Int).Sub(&l.cap, &l.totalSupply)
}

// BalanceOf returns the balance of addr.
func (l *Ledger) BalanceOf(addr types.Address) *uint256.Int {
	b := l.balances[addr]
	return b.Clone()
}

// Allowance returns how much spender may move on behalf of owner.
func (l *Ledger) Allowance(owner, spender types.Address) *uint256.Int {
	a := l.allowances[allowanceKey{owner, spender}]
	return a.Clone()
}

// CirculatingSupply is the total supply minus what sits on the burn address.
func (l *Ledger) CirculatingSupply() *uint256.Int {
	burned := l.balances[types.BurnAddress]
	return new(uint256.Int).Sub(&l.totalSupply, &burned)
}

// MaxTransferAmount is floor(circulatingSupply * maxTransferAmountRate / 10000).
func (l *Ledger) MaxTransferAmount() *uint256.Int {
	limit, err := types.ApplyBps(l.CirculatingSupply(), l.policy.MaxTransferAmountRate)
	if err != nil {
		// supply is bounded by the cap, so this only trips on absurd caps
		return new(uint256.Int).SetAllOne()
	}
	return limit
}

// Policy returns a copy of the transfer policy.
func (l *Ledger) Policy() Policy {
	p := l.policy
	p.MinAmountToLiquify = l.policy.MinAmountToLiquify.Clone()
	return p
}

// IsExcludedFromAntiWhale reports whether transfers touching addr skip the cap.
func (l *Ledger) IsExcludedFromAntiWhale(addr types.Address) bool {
	return addr == l.address ||
		addr == types.BurnAddress ||
		types.IsZero(addr) ||
		l.roles.IsPrivileged(addr) ||
		l.excluded.Contains(addr)
}

// Router returns the configured liquify router, or nil.
func (l *Ledger) Router() Router { return l.router }

func (l *Ledger) setBalance(addr types.Address, v *uint256.Int) {
	if v.IsZero() {
		chain.DeleteKey(l.host, l.balances, addr)
		return
	}
	chain.SetKey(l.host, l.balances, addr, *v)
}

func (l *Ledger) setAllowance(owner, spender types.Address, v *uint256.Int) {
	k := allowanceKey{owner, spender}
	if v.IsZero() {
		chain.DeleteKey(l.host, l.allowances, k)
		return
	}
	chain.SetKey(l.host, l.allowances, k, *v)
}

func (l *Ledger) emitTransfer(from, to types.Address, amount *uint256.Int) {
	l.host.Emit(&events.TransferEvent{
		BaseEvent: events.NewBase(events.Transfer, l.host.BlockNumber()),
		Token:     l.address,
		From:      from,
		To:        to,
		Amount:    amount.Clone(),
	})
}
