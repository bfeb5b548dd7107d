package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/internal/staff"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

// CallbackInput carries one inbound "mark ready" callback from the chat
// channel.
type CallbackInput struct {
	CallbackID string
	Data       string
	ChannelID  int64
	MessageID  int64
}

// CallbackHandler routes inbound callbacks through the transition ports.
// The primary port goes straight at the store; when it is unreachable the
// handler replays through the HTTP fallback, which runs the same state
// machine validation server side.
type CallbackHandler struct {
	client   *Client
	notifier *Notifier
	staff    staff.Service
	primary  TransitionPort
	fallback TransitionPort
	logg     *logger.Logger
}

// NewCallbackHandler builds the inbound callback handler. fallback may be
// nil when the worker always has direct store access.
func NewCallbackHandler(client *Client, notifier *Notifier, staffSvc staff.Service, primary, fallback TransitionPort, logg *logger.Logger) (*CallbackHandler, error) {
	if client == nil {
		return nil, errors.New("bot client required")
	}
	if notifier == nil {
		return nil, errors.New("notifier required")
	}
	if staffSvc == nil {
		return nil, errors.New("staff service required")
	}
	if primary == nil {
		return nil, errors.New("primary transition port required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &CallbackHandler{
		client:   client,
		notifier: notifier,
		staff:    staffSvc,
		primary:  primary,
		fallback: fallback,
		logg:     logg,
	}, nil
}

// Handle processes one callback. The callback is acknowledged before the
// transition is attempted so the channel UI never shows a stalled control.
func (h *CallbackHandler) Handle(ctx context.Context, input CallbackInput) error {
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"callback_id": input.CallbackID,
		"channel_id":  input.ChannelID,
	})

	orderID, err := ParseReadyAction(input.Data)
	if err != nil {
		_ = h.client.AnswerCallback(ctx, input.CallbackID, "This action is no longer valid.")
		h.logg.Warn(h.logg.WithField(logCtx, "data", input.Data), "rejected malformed callback")
		return err
	}
	logCtx = h.logg.WithField(logCtx, "order_id", orderID.String())

	if err := h.client.AnswerCallback(ctx, input.CallbackID, "Updating order..."); err != nil {
		h.logg.Warn(h.logg.WithField(logCtx, "error", err.Error()), "callback ack failed")
	}

	profile, err := h.staff.ResolveByChannel(ctx, input.ChannelID)
	if err != nil {
		_ = h.notifier.PostMessage(ctx, input.ChannelID,
			"This channel is not linked to a staff account. Ask a manager to register you.")
		return err
	}
	actor := orders.Actor{UserID: profile.ID, Role: profile.Role}

	alreadyReady, err := h.markReady(ctx, logCtx, orderID, actor)
	if err != nil {
		_ = h.notifier.PostMessage(ctx, input.ChannelID,
			fmt.Sprintf("Could not mark order ready: %s", userFacingReason(err)))
		return err
	}

	if input.MessageID != 0 {
		if rmErr := h.client.RemoveKeyboard(ctx, input.ChannelID, input.MessageID); rmErr != nil {
			h.logg.Warn(h.logg.WithField(logCtx, "error", rmErr.Error()), "failed to remove keyboard")
		}
	}

	if alreadyReady {
		h.logg.Info(logCtx, "order already ready, callback treated as no-op")
		return nil
	}

	if err := h.notifier.PostMessage(ctx, input.ChannelID, "Order marked ready for dispatch."); err != nil {
		h.logg.Warn(h.logg.WithField(logCtx, "error", err.Error()), "failed to post confirmation")
	}
	h.logg.Info(logCtx, "order marked ready via callback")
	return nil
}

// markReady tries the primary port, falling back on connectivity failures
// only. Validation rejections never trigger the fallback: both ports run the
// same rules, so a rejection on one is a rejection on both.
func (h *CallbackHandler) markReady(ctx context.Context, logCtx context.Context, orderID uuid.UUID, actor orders.Actor) (bool, error) {
	alreadyReady, primaryErr := h.primary.MarkReady(ctx, orderID, actor)
	if primaryErr == nil {
		return alreadyReady, nil
	}
	if h.fallback == nil || !isConnectivityError(primaryErr) {
		return false, primaryErr
	}

	h.logg.Warn(h.logg.WithField(logCtx, "error", primaryErr.Error()), "primary transition path unavailable, using fallback")
	return h.fallback.MarkReady(ctx, orderID, actor)
}

func isConnectivityError(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	switch typed.Code() {
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal, pkgerrors.CodeChannelTimeout:
		return true
	default:
		return false
	}
}

func userFacingReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "something went wrong, try again."
	}
	switch typed.Code() {
	case pkgerrors.CodeStateConflict:
		return "the order moved to another status in the meantime."
	case pkgerrors.CodeTerminalState:
		return "the order is already completed or cancelled."
	case pkgerrors.CodeNotFound:
		return "the order no longer exists."
	default:
		return "something went wrong, try again."
	}
}
