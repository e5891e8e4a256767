// internal/token/state.go
package token

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/access"
	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// State is the persisted form of a Ledger. Amounts are base-10 strings.
type State struct {
	Address     types.Address     `json:"address"`
	Owner       types.Address     `json:"owner"`
	Operator    types.Address     `json:"operator"`
	Name        string            `json:"name"`
	Symbol      string            `json:"symbol"`
	Decimals    uint8             `json:"decimals"`
	Cap         string            `json:"cap"`
	TotalSupply string            `json:"total_supply"`
	Balances    map[string]string `json:"balances"`
	Allowances  []AllowanceState  `json:"allowances,omitempty"`
	Policy      PolicyState       `json:"policy"`
	Excluded    []types.Address   `json:"excluded,omitempty"`
	Router      *types.Address    `json:"router,omitempty"`
}

// AllowanceState is one persisted allowance.
type AllowanceState struct {
	Owner   types.Address `json:"owner"`
	Spender types.Address `json:"spender"`
	Amount  string        `json:"amount"`
}

// PolicyState is the persisted Policy.
type PolicyState struct {
	TransferTaxRate       uint64 `json:"transfer_tax_rate"`
	BurnRate              uint64 `json:"burn_rate"`
	MaxTransferAmountRate uint64 `json:"max_transfer_amount_rate"`
	SwapAndLiquifyEnabled bool   `json:"swap_and_liquify_enabled"`
	MinAmountToLiquify    string `json:"min_amount_to_liquify"`
}

// Export captures the ledger state.
func (l *Ledger) Export() *State {
	st := &State{
		Address:     l.address,
		Owner:       l.roles.Owner(),
		Operator:    l.roles.Operator(),
		Name:        l.name,
		Symbol:      l.symbol,
		Decimals:    l.decimals,
		Cap:         types.FormatAmount(&l.cap),
		TotalSupply: types.FormatAmount(&l.totalSupply),
		Balances:    make(map[string]string, len(l.balances)),
		Policy: PolicyState{
			TransferTaxRate:       l.policy.TransferTaxRate,
			BurnRate:              l.policy.BurnRate,
			MaxTransferAmountRate: l.policy.MaxTransferAmountRate,
			SwapAndLiquifyEnabled: l.policy.SwapAndLiquifyEnabled,
			MinAmountToLiquify:    types.FormatAmount(l.policy.MinAmountToLiquify),
		},
	}
	for addr, bal := range l.balances {
		b := bal
		st.Balances[addr.String()] = types.FormatAmount(&b)
	}
	for k, v := range l.allowances {
		a := v
		st.Allowances = append(st.Allowances, AllowanceState{Owner: k.owner, Spender: k.spender, Amount: types.FormatAmount(&a)})
	}
	sort.Slice(st.Allowances, func(i, j int) bool {
		if st.Allowances[i].Owner != st.Allowances[j].Owner {
			return st.Allowances[i].Owner.String() < st.Allowances[j].Owner.String()
		}
		return st.Allowances[i].Spender.String() < st.Allowances[j].Spender.String()
	})
	l.excluded.Each(func(v interface{}) bool {
		st.Excluded = append(st.Excluded, v.(types.Address))
		return false
	})
	sort.Slice(st.Excluded, func(i, j int) bool { return st.Excluded[i].String() < st.Excluded[j].String() })
	if l.router != nil {
		addr := l.router.Address()
		st.Router = &addr
	}
	return st
}

// FromState rebuilds a ledger. The router is not part of the state and must
// be attached with RestoreRouter. Conservation (sum of balances equals total
// supply, supply within cap) is verified.
func FromState(host *chain.Host, logger *zap.Logger, st *State) (*Ledger, error) {
	capAmt, err := types.ParseAmount(st.Cap)
	if err != nil {
		return nil, fmt.Errorf("cap: %w", err)
	}
	supply, err := types.ParseAmount(st.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}
	minLiq, err := types.ParseAmount(st.Policy.MinAmountToLiquify)
	if err != nil {
		return nil, fmt.Errorf("min amount to liquify: %w", err)
	}
	policy := Policy{
		TransferTaxRate:       st.Policy.TransferTaxRate,
		BurnRate:              st.Policy.BurnRate,
		MaxTransferAmountRate: st.Policy.MaxTransferAmountRate,
		SwapAndLiquifyEnabled: st.Policy.SwapAndLiquifyEnabled,
		MinAmountToLiquify:    minLiq,
	}
	if err := ValidatePolicy(policy); err != nil {
		return nil, err
	}

	l := &Ledger{
		host:       host,
		logger:     logger.Named("token").With(zap.String("symbol", st.Symbol)),
		roles:      access.NewRoles(host, st.Address, st.Owner),
		address:    st.Address,
		name:       st.Name,
		symbol:     st.Symbol,
		decimals:   st.Decimals,
		balances:   make(map[types.Address]uint256.Int, len(st.Balances)),
		allowances: make(map[allowanceKey]uint256.Int, len(st.Allowances)),
		excluded:   mapset.NewThreadUnsafeSet(),
		policy:     policy,
	}
	l.roles.Restore(st.Owner, st.Operator)
	l.cap.Set(capAmt)
	l.totalSupply.Set(supply)

	sum := new(uint256.Int)
	for k, v := range st.Balances {
		addr, err := types.ParseAddress(k)
		if err != nil {
			return nil, err
		}
		bal, err := types.ParseAmount(v)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", k, err)
		}
		if sum, err = types.Add(sum, bal); err != nil {
			return nil, err
		}
		if !bal.IsZero() {
			l.balances[addr] = *bal
		}
	}
	if !sum.Eq(supply) {
		return nil, fmt.Errorf("%w: balances sum to %s but total supply is %s",
			types.ErrInvalidParameter, types.FormatAmount(sum), st.TotalSupply)
	}
	if supply.Gt(capAmt) {
		return nil, fmt.Errorf("%w: restored supply above cap", types.ErrSupplyCapExceeded)
	}
	for _, a := range st.Allowances {
		amt, err := types.ParseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		l.allowances[allowanceKey{a.Owner, a.Spender}] = *amt
	}
	for _, addr := range st.Excluded {
		l.excluded.Add(addr)
	}
	return l, nil
}

// RestoreRouter reattaches the liquify router after FromState. It bypasses
// the operator check and must only be used while rebuilding persisted state.
func (l *Ledger) RestoreRouter(r Router) {
	l.router = r
}
