package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

var (
	ErrInvalidInput  = errors.New("invalid order")
	ErrInvalidState  = errors.New("order cannot change state")
	ErrInvalidStatus = errors.New("invalid order status")
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Events groups the publishers for each order topic. Nil publishers are
// skipped.
type Events struct {
	Created       Publisher
	Cancelled     Publisher
	StatusChanged Publisher
}

// Service implements checkout and the customer and admin order lifecycle on
// top of a Store.
type Service struct {
	store  Store
	events Events
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, events Events, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

type CheckoutRequest struct {
	CustomerID    string              `json:"customer_id"`
	CustomerEmail string              `json:"customer_email"`
	Items         []domain.LineItem   `json:"items"`
	ShippingInfo  domain.ShippingInfo `json:"shipping_info"`
	DeliveryType  domain.DeliveryType `json:"delivery_type"`
}

func (req *CheckoutRequest) validate() error {
	if req.CustomerID == "" {
		return fmt.Errorf("%w: missing customer id", ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	}
	if req.DeliveryType == "" {
		req.DeliveryType = domain.DeliveryNormal
	}
	if !req.DeliveryType.Valid() {
		return fmt.Errorf("%w: unknown delivery type %q", ErrInvalidInput, req.DeliveryType)
	}
	for i, item := range req.Items {
		switch {
		case item.ID == "":
			return fmt.Errorf("%w: item %d has no product id", ErrInvalidInput, i)
		case item.VendorID == "":
			return fmt.Errorf("%w: item %s has no vendor", ErrInvalidInput, item.ID)
		case item.Price < 0:
			return fmt.Errorf("%w: item %s has a negative price", ErrInvalidInput, item.ID)
		case item.Quantity < 1:
			return fmt.Errorf("%w: item %s quantity must be at least 1", ErrInvalidInput, item.ID)
		}
	}
	return nil
}

// Checkout prices the cart and stores it as a pending order with every item
// pending.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	quote := domain.PriceOrder(req.Items, req.DeliveryType)
	estimated := domain.EstimatedDelivery(now, req.DeliveryType)

	items := make([]domain.LineItem, len(req.Items))
	for i, item := range req.Items {
		item.ItemStatus = domain.ItemStatusPending
		item.StatusUpdatedAt = nil
		item.StatusUpdatedBy = ""
		items[i] = item
	}

	email := req.CustomerEmail
	if email == "" {
		email = req.ShippingInfo.Email
	}

	order := &domain.Order{
		CustomerID:        req.CustomerID,
		CustomerEmail:     email,
		Items:             items,
		ShippingInfo:      req.ShippingInfo,
		DeliveryType:      req.DeliveryType,
		Subtotal:          quote.Subtotal,
		DeliveryCost:      quote.DeliveryCost,
		Total:             quote.Total,
		Status:            domain.OrderStatusPending,
		CreatedAt:         domain.NewTimestamp(now),
		EstimatedDelivery: &estimated,
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publish(ctx, s.events.Created, order.ID, domain.OrderCreatedEvent{
		EventID:       uuid.New().String(),
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		CustomerEmail: order.CustomerEmail,
		DeliveryType:  order.DeliveryType,
		Items:         order.Items,
		Total:         order.Total,
		Timestamp:     now,
	})

	s.logger.Info("order created", "order_id", order.ID, "customer_id", order.CustomerID,
		"delivery_type", order.DeliveryType, "total", order.Total)
	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// List returns every order, optionally only those of customerID.
func (s *Service) List(ctx context.Context, customerID string) ([]domain.Order, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if customerID == "" {
		return all, nil
	}

	out := make([]domain.Order, 0, len(all))
	for _, o := range all {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

// Vendor builds the vendor management view, optionally narrowed to orders
// holding a vendor item in status.
func (s *Service) Vendor(ctx context.Context, vendorID string, status domain.ItemStatus) (VendorView, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return VendorView{}, fmt.Errorf("list orders: %w", err)
	}

	view := VendorOrders(all, vendorID)
	if status != "" {
		view = FilterByItemStatus(view, status)
	}
	return view, nil
}

// Cancel moves an order to cancelled regardless of its items. Only pending
// and processing orders can be cancelled; anything else is ErrInvalidState.
func (s *Service) Cancel(ctx context.Context, id, actorID string) (*domain.Order, error) {
	updated, err := s.store.Mutate(ctx, id, func(o *domain.Order) error {
		if o.Status != domain.OrderStatusPending && o.Status != domain.OrderStatusProcessing {
			return fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
		}
		now := s.now().UTC()
		o.Status = domain.OrderStatusCancelled
		o.UpdatedAt = &now
		o.UpdatedBy = actorID
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	s.publish(ctx, s.events.Cancelled, updated.ID, domain.OrderCancelledEvent{
		EventID:       uuid.New().String(),
		OrderID:       updated.ID,
		CustomerEmail: updated.CustomerEmail,
		Items:         updated.Items,
		CancelledBy:   actorID,
		Timestamp:     s.now().UTC(),
	})

	s.logger.Info("order cancelled", "order_id", updated.ID, "cancelled_by", actorID)
	return updated, nil
}

// SetStatus overrides the aggregate status without touching line items.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.OrderStatus, actorID string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var previous domain.OrderStatus
	updated, err := s.store.Mutate(ctx, id, func(o *domain.Order) error {
		now := s.now().UTC()
		previous = o.Status
		o.Status = status
		o.UpdatedAt = &now
		o.UpdatedBy = actorID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	s.publish(ctx, s.events.StatusChanged, updated.ID, domain.OrderStatusChangedEvent{
		EventID:        uuid.New().String(),
		OrderID:        updated.ID,
		CustomerEmail:  updated.CustomerEmail,
		Status:         updated.Status,
		PreviousStatus: previous,
		Reason:         domain.ReasonOverride,
		ChangedBy:      actorID,
		Timestamp:      s.now().UTC(),
	})

	s.logger.Info("order status overridden", "order_id", updated.ID, "status", updated.Status, "previous", previous)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete order: %w", err)
	}
	s.logger.Info("order deleted", "order_id", id)
	return nil
}

func (s *Service) publish(ctx context.Context, p Publisher, key string, event any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, key, event); err != nil {
		s.logger.Error("failed to publish order event", "error", err, "order_id", key)
	}
}
