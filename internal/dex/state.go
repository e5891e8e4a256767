// internal/dex/state.go
package dex

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/access"
	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// State is the persisted form of a Pair, including its share ledger.
type State struct {
	Address      types.Address     `json:"address"`
	Owner        types.Address     `json:"owner"`
	FeeBps       uint64            `json:"fee_bps"`
	ReserveToken string            `json:"reserve_token"`
	ReserveBase  string            `json:"reserve_base"`
	BaseSupply   string            `json:"base_supply"`
	Base         map[string]string `json:"base"`
	LP           *token.State      `json:"lp"`
}

// Export captures the pair state.
func (p *Pair) Export() *State {
	st := &State{
		Address:      p.address,
		Owner:        p.roles.Owner(),
		FeeBps:       p.feeBps,
		ReserveToken: types.FormatAmount(&p.reserveToken),
		ReserveBase:  types.FormatAmount(&p.reserveBase),
		BaseSupply:   types.FormatAmount(&p.baseSupply),
		Base:         make(map[string]string, len(p.base)),
		LP:           p.lp.Export(),
	}
	for addr, bal := range p.base {
		b := bal
		st.Base[addr.String()] = types.FormatAmount(&b)
	}
	return st
}

// FromState rebuilds a pair over tok. Base balances plus the base reserve
// must add up to the recorded base supply.
func FromState(host *chain.Host, logger *zap.Logger, st *State, tok *token.Ledger) (*Pair, error) {
	lp, err := token.FromState(host, logger, st.LP)
	if err != nil {
		return nil, fmt.Errorf("lp ledger: %w", err)
	}
	p := &Pair{
		host:    host,
		logger:  logger.Named("dex").With(zap.String("pair", tok.Symbol())),
		roles:   access.NewRoles(host, st.Address, st.Owner),
		address: st.Address,
		feeBps:  st.FeeBps,
		token:   tok,
		lp:      lp,
		base:    make(map[types.Address]uint256.Int, len(st.Base)),
	}
	for field, raw := range map[string]struct {
		dst *uint256.Int
		src string
	}{
		"reserve_token": {&p.reserveToken, st.ReserveToken},
		"reserve_base":  {&p.reserveBase, st.ReserveBase},
		"base_supply":   {&p.baseSupply, st.BaseSupply},
	} {
		v, err := types.ParseAmount(raw.src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		raw.dst.Set(v)
	}

	sum := p.reserveBase.Clone()
	for k, v := range st.Base {
		addr, err := types.ParseAddress(k)
		if err != nil {
			return nil, err
		}
		bal, err := types.ParseAmount(v)
		if err != nil {
			return nil, err
		}
		if sum, err = types.Add(sum, bal); err != nil {
			return nil, err
		}
		p.base[addr] = *bal
	}
	if !sum.Eq(&p.baseSupply) {
		return nil, fmt.Errorf("%w: base balances do not add up to supply", types.ErrInvalidParameter)
	}
	if tok.BalanceOf(p.address).Lt(&p.reserveToken) {
		return nil, fmt.Errorf("%w: token reserve exceeds pair balance", types.ErrInsufficientLiquidity)
	}
	return p, nil
}
