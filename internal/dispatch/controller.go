package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

var tracer = otel.Tracer("dispatch")

// Store is the slice of the order store the controller depends on.
//
// Update and Mutate return a nil order and nil error when id does not exist.
// Mutate runs fn against the current document and persists the result
// atomically; an error from fn aborts the write and is returned unchanged.
type Store interface {
	List(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, id string, upd domain.OrderUpdate) (*domain.Order, error)
	Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Option func(*Controller)

// WithPublisher emits order.status_changed events through p.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock replaces time.Now for scoring and audit fields.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller mediates between the order store and a single delivery queue.
// Its methods serialise on an internal mutex, including the store calls they
// make, so a queue is never observed half rebuilt.
type Controller struct {
	store     Store
	publisher Publisher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	queue *Queue
}

func NewController(store Store, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queue = NewQueue(c.now)
	return c
}

// Refresh replaces the queue with every pending order that contains at least
// one item of vendorID. On a store failure the previous contents are kept.
func (c *Controller) Refresh(ctx context.Context, vendorID string) (int, error) {
	ctx, span := tracer.Start(ctx, "dispatch.refresh",
		trace.WithAttributes(attribute.String("vendor.id", vendorID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.store.List(ctx)
	if err != nil {
		err = &StoreError{Op: "list orders", Err: err}
		c.fail(span, err)
		c.logger.Error("failed to load delivery queue", "error", err, "vendor_id", vendorID)
		return c.queue.Len(), err
	}

	candidates := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == domain.OrderStatusPending && o.HasVendor(vendorID) {
			candidates = append(candidates, o)
		}
	}

	now := c.now()
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Millis(now) > candidates[j].CreatedAt.Millis(now)
	})

	c.queue.Reset()
	for _, o := range candidates {
		c.queue.Enqueue(o)
	}

	express, normal := c.queue.ByType()
	c.metrics.recordDepth(ctx, vendorID, len(express), len(normal))
	span.SetAttributes(attribute.Int("queue.size", c.queue.Len()))

	c.logger.Info("delivery queue refreshed", "vendor_id", vendorID,
		"express", len(express), "normal", len(normal))
	return c.queue.Len(), nil
}

// DispatchNext pops the highest priority order and marks it processing.
// An empty queue yields a nil order and nil error. If the store write fails
// the popped order goes back into the queue with its original priority.
func (c *Controller) DispatchNext(ctx context.Context, vendorID, actorID string) (*QueuedOrder, error) {
	ctx, span := tracer.Start(ctx, "dispatch.next",
		trace.WithAttributes(attribute.String("vendor.id", vendorID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := c.queue.Dequeue()
	if !ok {
		c.logger.Info("no orders in queue to dispatch", "vendor_id", vendorID)
		return nil, nil
	}

	span.SetAttributes(
		attribute.String("order.id", next.ID),
		attribute.Float64("order.priority", next.Priority),
	)

	updated, err := c.markProcessing(ctx, next.Order, actorID)
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			c.queue.push(next)
		}
		c.fail(span, err)
		c.logger.Error("failed to dispatch order", "error", err, "order_id", next.ID, "vendor_id", vendorID)
		return nil, err
	}

	next.Order = *updated
	c.metrics.recordDispatch(ctx, next.DeliveryType, "next")
	c.logger.Info("order dispatched", "order_id", next.ID, "vendor_id", vendorID,
		"delivery_type", next.DeliveryType, "priority", next.Priority)
	return &next, nil
}

// DispatchSpecific marks orderID processing and then removes it from the
// queue without popping the head.
func (c *Controller) DispatchSpecific(ctx context.Context, orderID, actorID string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "dispatch.specific",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	current := domain.Order{ID: orderID}
	for _, queued := range c.queue.items {
		if queued.ID == orderID {
			current = queued.Order
			break
		}
	}

	updated, err := c.markProcessing(ctx, current, actorID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			c.queue.Remove(orderID)
		}
		c.fail(span, err)
		c.logger.Error("failed to dispatch order", "error", err, "order_id", orderID)
		return nil, err
	}

	removed := c.queue.Remove(orderID)
	c.metrics.recordDispatch(ctx, updated.DeliveryType, "specific")
	c.logger.Info("order dispatched", "order_id", orderID, "was_queued", removed)
	return updated, nil
}

// UpdateItemStatus sets the status of the line item identified by itemID and
// owned by vendorID, then recomputes the order's aggregate status over every
// item. Items with the same id owned by other vendors are left untouched.
// A cancelled order is final and rejects further item updates.
func (c *Controller) UpdateItemStatus(ctx context.Context, orderID, itemID, vendorID string, status domain.ItemStatus) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "dispatch.update_item_status",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("item.id", itemID),
			attribute.String("vendor.id", vendorID),
			attribute.String("item.status", string(status)),
		))
	defer span.End()

	if !status.Valid() {
		err := fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		c.fail(span, err)
		return nil, err
	}

	var previous domain.OrderStatus
	updated, err := c.store.Mutate(ctx, orderID, func(o *domain.Order) error {
		if o.Status == domain.OrderStatusCancelled {
			return ErrOrderCancelled
		}

		now := c.now().UTC()
		stamp := domain.NewTimestamp(now)

		matched, owned := false, false
		for i := range o.Items {
			item := &o.Items[i]
			if item.ID != itemID {
				continue
			}
			matched = true
			if item.VendorID != vendorID {
				continue
			}
			owned = true
			item.ItemStatus = status
			item.StatusUpdatedAt = &stamp
			item.StatusUpdatedBy = vendorID
		}

		switch {
		case !matched:
			return ErrItemNotFound
		case !owned:
			return ErrForbidden
		}

		previous = o.Status
		o.Status = domain.AggregateStatus(o.Items)
		o.UpdatedAt = &now
		o.UpdatedBy = vendorID
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrItemNotFound) && !errors.Is(err, ErrForbidden) && !errors.Is(err, ErrOrderCancelled) {
			err = &StoreError{Op: "update item status", Err: err}
		}
		c.fail(span, err)
		c.logger.Error("failed to update item status", "error", err, "order_id", orderID, "item_id", itemID, "vendor_id", vendorID)
		return nil, err
	}
	if updated == nil {
		c.fail(span, ErrOrderNotFound)
		return nil, ErrOrderNotFound
	}

	c.metrics.recordItemUpdate(ctx, status)
	c.publish(ctx, domain.OrderStatusChangedEvent{
		OrderID:        updated.ID,
		CustomerEmail:  updated.CustomerEmail,
		Status:         updated.Status,
		PreviousStatus: previous,
		Reason:         domain.ReasonItemStatus,
		ItemID:         itemID,
		ItemStatus:     status,
		ChangedBy:      vendorID,
	})

	c.logger.Info("item status updated", "order_id", orderID, "item_id", itemID,
		"vendor_id", vendorID, "item_status", status, "order_status", updated.Status)
	return updated, nil
}

// Snapshot is the read model of a vendor's queue.
type Snapshot struct {
	VendorID     string        `json:"vendor_id"`
	Size         int           `json:"size"`
	ExpressCount int           `json:"express_count"`
	NormalCount  int           `json:"normal_count"`
	Express      []QueuedOrder `json:"express"`
	Normal       []QueuedOrder `json:"normal"`
}

func (c *Controller) Snapshot(vendorID string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	express, normal := c.queue.ByType()
	return Snapshot{
		VendorID:     vendorID,
		Size:         c.queue.Len(),
		ExpressCount: len(express),
		NormalCount:  len(normal),
		Express:      express,
		Normal:       normal,
	}
}

// Peek returns the order DispatchNext would take, if any.
func (c *Controller) Peek() (QueuedOrder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Peek()
}

func (c *Controller) markProcessing(ctx context.Context, current domain.Order, actorID string) (*domain.Order, error) {
	now := c.now().UTC()
	status := domain.OrderStatusProcessing

	updated, err := c.store.Update(ctx, current.ID, domain.OrderUpdate{
		Status:      &status,
		ProcessedAt: &now,
		ProcessedBy: &actorID,
		UpdatedAt:   &now,
		UpdatedBy:   &actorID,
	})
	if err != nil {
		return nil, &StoreError{Op: "mark order processing", Err: err}
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}

	c.publish(ctx, domain.OrderStatusChangedEvent{
		OrderID:        updated.ID,
		CustomerEmail:  updated.CustomerEmail,
		Status:         updated.Status,
		PreviousStatus: current.Status,
		Reason:         domain.ReasonDispatched,
		ChangedBy:      actorID,
	})
	return updated, nil
}

func (c *Controller) publish(ctx context.Context, event domain.OrderStatusChangedEvent) {
	if c.publisher == nil {
		return
	}
	event.EventID = uuid.New().String()
	event.Timestamp = c.now().UTC()
	if err := c.publisher.Publish(ctx, event.OrderID, event); err != nil {
		c.logger.Error("failed to publish status change event", "error", err, "order_id", event.OrderID)
	}
}

func (c *Controller) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
