package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

const (
	notifyMaxRetries     = 3
	notifyInitialBackoff = 500 * time.Millisecond
)

// Notifier delivers order summaries with a "mark ready" control to chat
// channels.
type Notifier struct {
	client *Client
	logg   *logger.Logger
}

// NewNotifier builds an outbound notifier.
func NewNotifier(client *Client, logg *logger.Logger) (*Notifier, error) {
	if client == nil {
		return nil, errors.New("bot client required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Notifier{client: client, logg: logg}, nil
}

// NotifyOrder sends the order summary to the channel with the ready control
// attached. Timeouts are retried a bounded number of times; channel errors
// surface immediately since they need external remediation.
func (n *Notifier) NotifyOrder(ctx context.Context, channelID int64, order *models.Order) (*SentMessage, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if channelID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel id required")
	}

	text := RenderOrderSummary(order)
	keyboard := &InlineKeyboard{
		InlineKeyboard: [][]InlineButton{{
			{Text: "Mark ready", CallbackData: ReadyAction(order.ID)},
		}},
	}

	var sent *SentMessage
	backoff := retry.WithMaxRetries(notifyMaxRetries, retry.NewExponential(notifyInitialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		msg, sendErr := n.client.SendMessage(ctx, channelID, text, keyboard)
		if sendErr != nil {
			if pkgerrors.Retryable(sendErr) {
				return retry.RetryableError(sendErr)
			}
			return sendErr
		}
		sent = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := n.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"channel_id": channelID,
	})
	n.logg.Info(logCtx, "order notification delivered")
	return sent, nil
}

// PostMessage sends a plain text message without controls.
func (n *Notifier) PostMessage(ctx context.Context, channelID int64, text string) error {
	_, err := n.client.SendMessage(ctx, channelID, text, nil)
	return err
}

// RenderOrderSummary formats the human-readable order text the channel shows.
func RenderOrderSummary(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Order #%d (%s)\n", order.OrderNumber, shortID(order.ID.String()))
	fmt.Fprintf(&b, "Warehouse: %s\n", order.WarehouseName)

	customer := order.CustomerName
	if customer == "" && order.CustomerPhone != nil {
		customer = *order.CustomerPhone
	}
	if customer != "" {
		fmt.Fprintf(&b, "Customer: %s\n", customer)
	}
	if order.CustomerPhone != nil && order.CustomerName != "" {
		fmt.Fprintf(&b, "Phone: %s\n", *order.CustomerPhone)
	}
	if addr := order.DeliveryAddress.Short(); addr != "" {
		fmt.Fprintf(&b, "Address: %s\n", addr)
	}

	if len(order.Items) > 0 {
		b.WriteString("\n")
		for _, item := range order.Items {
			fmt.Fprintf(&b, "%d x %s = %s\n", item.Qty, item.Name, item.LineTotal.StringFixed(2))
		}
	}
	fmt.Fprintf(&b, "\nTotal: %s", order.Total.StringFixed(2))

	return b.String()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
