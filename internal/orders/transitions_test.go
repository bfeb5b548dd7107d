package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

func TestPlanTransition_CanonicalPipeline(t *testing.T) {
	edges := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
	}{
		{enums.OrderStatusPending, enums.OrderStatusAssignedToCollector},
		{enums.OrderStatusAssignedToCollector, enums.OrderStatusCollecting},
		{enums.OrderStatusCollecting, enums.OrderStatusReady},
		{enums.OrderStatusReady, enums.OrderStatusAssignedToCourier},
		{enums.OrderStatusAssignedToCourier, enums.OrderStatusDelivering},
		{enums.OrderStatusDelivering, enums.OrderStatusDelivered},
	}

	for _, edge := range edges {
		plan, err := PlanTransition(edge.from, edge.to, enums.StaffRoleCollector)
		require.NoError(t, err, "%s -> %s", edge.from, edge.to)
		assert.Equal(t, edge.from, plan.From)
		assert.Equal(t, edge.to, plan.To)
		assert.False(t, plan.Override)
	}
}

func TestPlanTransition_CancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusAssignedToCollector,
		enums.OrderStatusCollecting,
		enums.OrderStatusReady,
		enums.OrderStatusAssignedToCourier,
		enums.OrderStatusDelivering,
	} {
		plan, err := PlanTransition(from, enums.OrderStatusCancelled, enums.StaffRoleCollector)
		require.NoError(t, err, "cancel from %s", from)
		assert.True(t, plan.HasEffect(EffectReleaseAssignment))
	}
}

func TestPlanTransition_TerminalStatesAreFinalForEveryRole(t *testing.T) {
	for _, from := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled} {
		for _, role := range []enums.StaffRole{
			enums.StaffRoleCollector,
			enums.StaffRoleCourier,
			enums.StaffRoleManager,
			enums.StaffRoleSuperAdmin,
		} {
			_, err := PlanTransition(from, enums.OrderStatusPending, role)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeTerminalState, typed.Code())
		}
	}
}

func TestPlanTransition_SameStatusIsConflict(t *testing.T) {
	_, err := PlanTransition(enums.OrderStatusReady, enums.OrderStatusReady, enums.StaffRoleManager)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestPlanTransition_SkippingStagesNeedsOverrideRole(t *testing.T) {
	_, err := PlanTransition(enums.OrderStatusPending, enums.OrderStatusDelivering, enums.StaffRoleCollector)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	plan, err := PlanTransition(enums.OrderStatusPending, enums.OrderStatusDelivering, enums.StaffRoleManager)
	require.NoError(t, err)
	assert.True(t, plan.Override)

	plan, err = PlanTransition(enums.OrderStatusDelivering, enums.OrderStatusCollecting, enums.StaffRoleSuperAdmin)
	require.NoError(t, err)
	assert.True(t, plan.Override)
}

func TestPlanTransition_OverrideCannotJumpToTerminal(t *testing.T) {
	_, err := PlanTransition(enums.OrderStatusPending, enums.OrderStatusDelivered, enums.StaffRoleManager)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestPlanTransition_Effects(t *testing.T) {
	plan, err := PlanTransition(enums.OrderStatusCollecting, enums.OrderStatusReady, enums.StaffRoleCollector)
	require.NoError(t, err)
	assert.True(t, plan.HasEffect(EffectNotifyReady))
	assert.False(t, plan.HasEffect(EffectReleaseAssignment))

	plan, err = PlanTransition(enums.OrderStatusDelivering, enums.OrderStatusDelivered, enums.StaffRoleCourier)
	require.NoError(t, err)
	assert.True(t, plan.HasEffect(EffectReleaseAssignment))
	assert.False(t, plan.HasEffect(EffectNotifyReady))
}

func TestPlanTransition_InvalidStatus(t *testing.T) {
	_, err := PlanTransition(enums.OrderStatusPending, enums.OrderStatus("shipped"), enums.StaffRoleManager)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
