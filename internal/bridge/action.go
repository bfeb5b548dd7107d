package bridge

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

const actionReadyPrefix = "order_ready_"

// ReadyAction builds the callback data embedded in the "mark ready" control.
func ReadyAction(orderID uuid.UUID) string {
	return actionReadyPrefix + orderID.String()
}

// ParseReadyAction extracts the order id from callback data. Anything that is
// not a well-formed ready action is rejected before the id is used.
func ParseReadyAction(data string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(data)
	if !strings.HasPrefix(trimmed, actionReadyPrefix) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unrecognized action %q", data))
	}
	orderID, err := uuid.Parse(strings.TrimPrefix(trimmed, actionReadyPrefix))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "action carries a malformed order id")
	}
	return orderID, nil
}
