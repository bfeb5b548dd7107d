package orders

import (
	"fmt"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

// Effect names a side effect the service must apply in the same transaction
// as the status write.
type Effect string

const (
	EffectNotifyReady       Effect = "notify_ready"
	EffectReleaseAssignment Effect = "release_assignment"
)

// TransitionPlan is the decided outcome for a requested status change.
type TransitionPlan struct {
	From     enums.OrderStatus
	To       enums.OrderStatus
	Override bool
	Effects  []Effect
}

// HasEffect reports whether the plan carries the given effect.
func (p TransitionPlan) HasEffect(effect Effect) bool {
	for _, e := range p.Effects {
		if e == effect {
			return true
		}
	}
	return false
}

// canonicalNext holds the forward pipeline edges. Cancellation is handled
// separately since it is reachable from every non-terminal status.
var canonicalNext = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusPending:             enums.OrderStatusAssignedToCollector,
	enums.OrderStatusAssignedToCollector: enums.OrderStatusCollecting,
	enums.OrderStatusCollecting:          enums.OrderStatusReady,
	enums.OrderStatusReady:               enums.OrderStatusAssignedToCourier,
	enums.OrderStatusAssignedToCourier:   enums.OrderStatusDelivering,
	enums.OrderStatusDelivering:          enums.OrderStatusDelivered,
}

// PlanTransition decides whether current -> requested is legal for the acting
// role and returns the effects the write must carry. Terminal states admit no
// exit for any role, including the override roles.
func PlanTransition(current, requested enums.OrderStatus, role enums.StaffRole) (*TransitionPlan, error) {
	if !requested.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", requested))
	}
	if current.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeTerminalState,
			fmt.Sprintf("order is %s and cannot change status", current)).
			WithDetails(map[string]any{"current": current, "requested": requested})
	}
	if requested == current {
		return nil, stateConflict(current, requested)
	}

	plan := &TransitionPlan{From: current, To: requested}

	switch {
	case requested == enums.OrderStatusCancelled:
		// allowed from any non-terminal status
	case canonicalNext[current] == requested:
		// canonical forward edge
	case role.CanOverrideTransitions() && !requested.IsTerminal():
		plan.Override = true
	default:
		return nil, stateConflict(current, requested)
	}

	if requested == enums.OrderStatusReady {
		plan.Effects = append(plan.Effects, EffectNotifyReady)
	}
	if requested.IsTerminal() {
		plan.Effects = append(plan.Effects, EffectReleaseAssignment)
	}
	return plan, nil
}

func stateConflict(current, requested enums.OrderStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("transition %s -> %s not allowed", current, requested)).
		WithDetails(map[string]any{"current": current, "requested": requested})
}
