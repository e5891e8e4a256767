// internal/access/whitelist.go
package access

import (
	"fmt"

	mapset "github.com/deckarep/golang-set"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Whitelist is a journaled set of addresses allowed to call privileged
// functions. Membership is checked per call.
type Whitelist struct {
	host *chain.Host
	set  mapset.Set
}

// NewWhitelist creates an empty whitelist.
func NewWhitelist(host *chain.Host) *Whitelist {
	return &Whitelist{host: host, set: mapset.NewThreadUnsafeSet()}
}

// Contains reports membership.
func (w *Whitelist) Contains(addr types.Address) bool {
	return w.set.Contains(addr)
}

// Set adds or removes addr.
func (w *Whitelist) Set(addr types.Address, enabled bool) {
	was := w.set.Contains(addr)
	if was == enabled {
		return
	}
	if enabled {
		w.set.Add(addr)
		w.host.Record(func() { w.set.Remove(addr) })
		return
	}
	w.set.Remove(addr)
	w.host.Record(func() { w.set.Add(addr) })
}

// Members returns the current members in no particular order.
func (w *Whitelist) Members() []types.Address {
	out := make([]types.Address, 0, w.set.Cardinality())
	w.set.Each(func(v interface{}) bool {
		out = append(out, v.(types.Address))
		return false
	})
	return out
}

// Require is the capability check: caller must be a member.
func Require(w *Whitelist, caller types.Address) error {
	if !w.Contains(caller) {
		return fmt.Errorf("%w: caller %s is not on the operator whitelist", types.ErrAccessDenied, caller)
	}
	return nil
}
