// internal/referral/state.go
package referral

import (
	"sort"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// State is the persisted form of a Registry.
type State struct {
	Address     types.Address     `json:"address"`
	Owner       types.Address     `json:"owner"`
	Operators   []types.Address   `json:"operators"`
	Referrers   map[string]string `json:"referrers"`
	Counts      map[string]uint64 `json:"counts"`
	Commissions map[string]string `json:"commissions"`
}

// Export captures the registry state.
func (r *Registry) Export() *State {
	st := &State{
		Address:     r.address,
		Owner:       r.roles.Owner(),
		Operators:   r.operators.Members(),
		Referrers:   make(map[string]string, len(r.referrers)),
		Counts:      make(map[string]uint64, len(r.counts)),
		Commissions: make(map[string]string, len(r.commissions)),
	}
	sort.Slice(st.Operators, func(i, j int) bool { return st.Operators[i].String() < st.Operators[j].String() })
	for u, ref := range r.referrers {
		st.Referrers[u.String()] = ref.String()
	}
	for a, n := range r.counts {
		st.Counts[a.String()] = n
	}
	for a, c := range r.commissions {
		v := c
		st.Commissions[a.String()] = types.FormatAmount(&v)
	}
	return st
}

// FromState rebuilds a registry.
func FromState(host *chain.Host, logger *zap.Logger, st *State) (*Registry, error) {
	r := New(host, logger, st.Address, st.Owner)
	for _, op := range st.Operators {
		r.operators.Set(op, true)
	}
	for u, ref := range st.Referrers {
		user, err := types.ParseAddress(u)
		if err != nil {
			return nil, err
		}
		referrer, err := types.ParseAddress(ref)
		if err != nil {
			return nil, err
		}
		r.referrers[user] = referrer
	}
	for a, n := range st.Counts {
		addr, err := types.ParseAddress(a)
		if err != nil {
			return nil, err
		}
		r.counts[addr] = n
	}
	for a, c := range st.Commissions {
		addr, err := types.ParseAddress(a)
		if err != nil {
			return nil, err
		}
		amt, err := types.ParseAmount(c)
		if err != nil {
			return nil, err
		}
		r.commissions[addr] = *amt
	}
	return r, nil
}
