// Package worker reacts to order lifecycle events: it moves stock in the
// inventory service, cancels orders that cannot be fulfilled and notifies
// customers by email.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
	"github.com/joao-fontenele/storefront-dispatch/internal/email"
	"github.com/joao-fontenele/storefront-dispatch/internal/messaging"
)

// Actor is recorded as the updater when the worker overrides an order status.
const Actor = "notification-worker"

// ServiceURLs locates the HTTP services the worker calls.
type ServiceURLs struct {
	Email     string
	Orders    string
	Inventory string
}

type Handler struct {
	urls       ServiceURLs
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHandler(urls ServiceURLs, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		urls:       urls,
		httpClient: client,
		logger:     logger,
	}
}

// notifyOn lists the order statuses customers hear about.
var notifyOn = map[domain.OrderStatus]string{
	domain.OrderStatusProcessing:         "is being prepared",
	domain.OrderStatusShipped:            "has shipped",
	domain.OrderStatusDelivered:          "has been delivered",
	domain.OrderStatusPartiallyCancelled: "has been partially cancelled",
}

// HandleOrderCreated reserves stock for every line item. When any
// reservation fails the ones already made are released, the order is
// cancelled and the customer is told why.
//
// Reserving is not idempotent, so once stock has moved only the order status
// write can fail the event. Email failures are logged and swallowed; a
// redelivery would reserve the same items again.
func (h *Handler) HandleOrderCreated(ctx context.Context, msg messaging.Message) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "customer_id", event.CustomerID)

	reserved, err := h.reserveStock(ctx, event.Items)
	if err != nil {
		h.logger.Error("failed to reserve stock", "error", err, "order_id", event.OrderID)

		h.releaseStock(ctx, reserved)

		if err := h.updateOrderStatus(ctx, event.OrderID, domain.OrderStatusCancelled); err != nil {
			return fmt.Errorf("cancel order after stock failure: %w", err)
		}

		if err := h.sendEmail(ctx, email.Message{
			To:      event.CustomerEmail,
			Subject: "Order Cancelled: " + event.OrderID,
			Body:    fmt.Sprintf("Your order %s has been cancelled due to insufficient stock. You will be reimbursed.", event.OrderID),
		}); err != nil {
			h.logger.Error("failed to send cancellation email", "error", err, "order_id", event.OrderID)
		}

		h.logger.Info("order cancelled due to insufficient stock", "order_id", event.OrderID)
		return nil
	}

	if err := h.sendEmail(ctx, email.Message{
		To:      event.CustomerEmail,
		Subject: "Order Confirmation: " + event.OrderID,
		Body: fmt.Sprintf("Your order %s has been placed with %d items for %.2f. %s delivery.",
			event.OrderID, len(event.Items), event.Total, event.DeliveryType),
	}); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
	}

	h.logger.Info("order processing complete", "order_id", event.OrderID)
	return nil
}

// HandleOrderCancelled returns the reserved units of the order's items to
// the available pool. Like HandleOrderCreated it never fails after stock has
// moved, so the notification is best effort.
func (h *Handler) HandleOrderCancelled(ctx context.Context, msg messaging.Message) error {
	var event domain.OrderCancelledEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal order cancelled event: %w", err)
	}

	h.logger.Info("processing order cancelled event", "order_id", event.OrderID, "cancelled_by", event.CancelledBy)
	h.releaseStock(ctx, event.Items)

	if err := h.sendEmail(ctx, email.Message{
		To:      event.CustomerEmail,
		Subject: "Order Cancelled: " + event.OrderID,
		Body:    fmt.Sprintf("Your order %s has been cancelled.", event.OrderID),
	}); err != nil {
		h.logger.Error("failed to send cancellation email", "error", err, "order_id", event.OrderID)
	}
	return nil
}

// HandleStatusChanged emails the customer when the order reaches a status
// they care about. Other transitions are acknowledged silently.
func (h *Handler) HandleStatusChanged(ctx context.Context, msg messaging.Message) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal order status changed event: %w", err)
	}

	if event.Status == event.PreviousStatus {
		return nil
	}
	phrase, ok := notifyOn[event.Status]
	if !ok || event.CustomerEmail == "" {
		h.logger.Debug("status change not notified", "order_id", event.OrderID, "status", event.Status)
		return nil
	}

	if err := h.sendEmail(ctx, email.Message{
		To:      event.CustomerEmail,
		Subject: fmt.Sprintf("Order %s update", event.OrderID),
		Body:    fmt.Sprintf("Your order %s %s.", event.OrderID, phrase),
	}); err != nil {
		return fmt.Errorf("send status email: %w", err)
	}

	h.logger.Info("status change notified", "order_id", event.OrderID, "status", event.Status, "reason", event.Reason)
	return nil
}
