// internal/access/roles.go
package access

import (
	"fmt"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Roles is the two-tier privilege record of one component. The owner is the
// ultimate authority and can reassign the operator; the operator tunes
// day-to-day parameters.
type Roles struct {
	host      *chain.Host
	component types.Address
	owner     types.Address
	operator  types.Address
}

// NewRoles creates a role record where owner also holds the operator role.
func NewRoles(host *chain.Host, component, owner types.Address) *Roles {
	return &Roles{host: host, component: component, owner: owner, operator: owner}
}

// Owner returns the current owner.
func (r *Roles) Owner() types.Address { return r.owner }

// Operator returns the current operator.
func (r *Roles) Operator() types.Address { return r.operator }

// RequireOwner fails with ErrAccessDenied unless caller is the owner.
func (r *Roles) RequireOwner(caller types.Address) error {
	if caller != r.owner {
		return fmt.Errorf("%w: caller %s is not the owner", types.ErrAccessDenied, caller)
	}
	return nil
}

// RequireOperator fails with ErrAccessDenied unless caller is the operator.
func (r *Roles) RequireOperator(caller types.Address) error {
	if caller != r.operator {
		return fmt.Errorf("%w: caller %s is not the operator", types.ErrAccessDenied, caller)
	}
	return nil
}

// RequireOwnerOrOperator accepts either role.
func (r *Roles) RequireOwnerOrOperator(caller types.Address) error {
	if caller != r.owner && caller != r.operator {
		return fmt.Errorf("%w: caller %s is neither owner nor operator", types.ErrAccessDenied, caller)
	}
	return nil
}

// IsPrivileged reports whether addr currently holds either role.
func (r *Roles) IsPrivileged(addr types.Address) bool {
	return addr == r.owner || addr == r.operator
}

// TransferOperator hands the operator role to next. Only the operator may do it.
func (r *Roles) TransferOperator(caller, next types.Address) error {
	if err := r.RequireOperator(caller); err != nil {
		return err
	}
	if types.IsZero(next) {
		return fmt.Errorf("%w: new operator", types.ErrZeroAddress)
	}
	prev := r.operator
	chain.Set(r.host, &r.operator, next)
	r.host.Emit(&events.RoleTransferredEvent{
		BaseEvent: events.NewBase(events.OperatorTransferred, r.host.BlockNumber()),
		Component: r.component,
		Previous:  prev,
		Current:   next,
	})
	return nil
}

// TransferOwnership hands the owner role to next in one step.
func (r *Roles) TransferOwnership(caller, next types.Address) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if types.IsZero(next) {
		return fmt.Errorf("%w: new owner", types.ErrZeroAddress)
	}
	prev := r.owner
	chain.Set(r.host, &r.owner, next)
	r.host.Emit(&events.RoleTransferredEvent{
		BaseEvent: events.NewBase(events.OwnershipTransferred, r.host.BlockNumber()),
		Component: r.component,
		Previous:  prev,
		Current:   next,
	})
	return nil
}

// Restore overwrites both roles. Used when loading persisted state.
func (r *Roles) Restore(owner, operator types.Address) {
	r.owner = owner
	r.operator = operator
}
