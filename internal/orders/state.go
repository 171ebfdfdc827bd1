package orders

import (
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
)

// transitionRule describes one legal edge of the order lifecycle.
type transitionRule struct {
	actor          enums.UserRole
	restoresStock  bool
	requiresReason bool
	delivers       bool
}

var transitions = map[enums.OrderStatus]map[enums.OrderStatus]transitionRule{
	enums.OrderStatusPending: {
		enums.OrderStatusAccepted:  {actor: enums.UserRoleSupplier},
		enums.OrderStatusRejected:  {actor: enums.UserRoleSupplier, restoresStock: true, requiresReason: true},
		enums.OrderStatusCancelled: {actor: enums.UserRoleVendor, restoresStock: true},
	},
	enums.OrderStatusAccepted: {
		enums.OrderStatusProcessing: {actor: enums.UserRoleSupplier},
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusShipped: {actor: enums.UserRoleSupplier},
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusDelivered: {actor: enums.UserRoleSupplier, delivers: true},
	},
}

func lookupTransition(from, to enums.OrderStatus) (transitionRule, bool) {
	rule, ok := transitions[from][to]
	return rule, ok
}

// NextStatuses lists the statuses reachable from current, in lifecycle order.
func NextStatuses(current enums.OrderStatus) []enums.OrderStatus {
	var out []enums.OrderStatus
	for _, status := range enums.OrderStatuses() {
		if _, ok := transitions[current][status]; ok {
			out = append(out, status)
		}
	}
	return out
}

// CanTransition reports whether party may move an order from -> to.
func CanTransition(from, to enums.OrderStatus, party enums.UserRole) error {
	rule, ok := lookupTransition(from, to)
	if !ok {
		return invalidTransition(from, to)
	}
	if rule.actor != party {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "only the %s can move an order to %s", rule.actor, to)
	}
	return nil
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "cannot move order from %s to %s", from, to).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": NextStatuses(from),
		})
}
