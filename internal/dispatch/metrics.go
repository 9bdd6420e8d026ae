package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

// Metrics holds the dispatch instruments. A nil *Metrics records nothing.
type Metrics struct {
	queueDepth  metric.Int64Gauge
	dispatched  metric.Int64Counter
	itemUpdates metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	queueDepth, err := meter.Int64Gauge("dispatch.queue.depth",
		metric.WithDescription("Orders waiting in a vendor delivery queue"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	dispatched, err := meter.Int64Counter("dispatch.orders.dispatched",
		metric.WithDescription("Orders moved to processing from a delivery queue"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	itemUpdates, err := meter.Int64Counter("dispatch.item_status.updates",
		metric.WithDescription("Line item status transitions applied by vendors"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		queueDepth:  queueDepth,
		dispatched:  dispatched,
		itemUpdates: itemUpdates,
	}, nil
}

func (m *Metrics) recordDepth(ctx context.Context, vendorID string, express, normal int) {
	if m == nil {
		return
	}
	m.queueDepth.Record(ctx, int64(express), metric.WithAttributes(
		attribute.String("vendor.id", vendorID),
		attribute.String("delivery.type", string(domain.DeliveryExpress)),
	))
	m.queueDepth.Record(ctx, int64(normal), metric.WithAttributes(
		attribute.String("vendor.id", vendorID),
		attribute.String("delivery.type", string(domain.DeliveryNormal)),
	))
}

func (m *Metrics) recordDispatch(ctx context.Context, deliveryType domain.DeliveryType, mode string) {
	if m == nil {
		return
	}
	m.dispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("delivery.type", string(deliveryType)),
		attribute.String("dispatch.mode", mode),
	))
}

func (m *Metrics) recordItemUpdate(ctx context.Context, status domain.ItemStatus) {
	if m == nil {
		return
	}
	m.itemUpdates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("item.status", string(status)),
	))
}
