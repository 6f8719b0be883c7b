package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/shared/utils"
	"restaurant-backoffice/pkg/logger"
)

// PushSender delivers a notification to one customer
type PushSender interface {
	SendPush(ctx context.Context, recipient, title, body string, data map[string]interface{}) (string, error)
}

// StatusChangedHandler tells the customer about customer-visible status
// changes. Orders without a customer (walk-in dine-in) are only logged.
type StatusChangedHandler struct {
	push PushSender
}

func NewStatusChangedHandler(push PushSender) *StatusChangedHandler {
	return &StatusChangedHandler{push: push}
}

// customerMessages holds the statuses a customer hears about
var customerMessages = map[model.OrderStatus]string{
	model.OrderStatusConfirmed:     "Your order %s has been confirmed",
	model.OrderStatusReadyToPickup: "Your order %s is ready",
	model.OrderStatusOnTheWay:      "Your order %s is on the way",
	model.OrderStatusCompleted:     "Your order %s is completed. Enjoy!",
	model.OrderStatusCancelled:     "Your order %s has been cancelled",
}

func (h *StatusChangedHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p model.StatusChangedPayload
	if err := utils.UnmarshalTask(t, &p); err != nil {
		logger.Error("Invalid status_changed payload", err)
		return err
	}

	logger.Info("Order status changed", map[string]interface{}{
		"order_id":   p.OrderID,
		"channel":    p.Channel,
		"from":       p.FromStatus,
		"to":         p.ToStatus,
		"changed_by": p.ChangedBy,
	})

	customerID, err := utils.ParseOptionalUUID(p.CustomerID)
	if err != nil {
		return fmt.Errorf("customer_id %q: %v: %w", p.CustomerID, err, asynq.SkipRetry)
	}
	if customerID == nil {
		return nil
	}

	tmpl, ok := customerMessages[p.ToStatus]
	if !ok {
		return nil
	}

	msgID, err := h.push.SendPush(ctx, customerID.String(), "Order update", fmt.Sprintf(tmpl, p.OrderID), map[string]interface{}{
		"order_id": p.OrderID,
		"status":   p.ToStatus,
	})
	if err != nil {
		return fmt.Errorf("push status %s for order %s: %w", p.ToStatus, p.OrderID, err)
	}

	logger.Debug("status push sent: " + msgID)
	return nil
}
