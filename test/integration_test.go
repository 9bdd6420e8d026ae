//go:build integration

package test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-dispatch/internal/dispatch"
	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
	"github.com/joao-fontenele/storefront-dispatch/internal/inventory"
	"github.com/joao-fontenele/storefront-dispatch/internal/orders"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func checkout(customerID string, delivery domain.DeliveryType, items ...domain.LineItem) orders.CheckoutRequest {
	return orders.CheckoutRequest{
		CustomerID:    customerID,
		CustomerEmail: customerID + "@example.com",
		Items:         items,
		ShippingInfo:  domain.ShippingInfo{Name: "Ana", Address: "Rua A, 1", City: "Lisboa", Zip: "1000-001"},
		DeliveryType:  delivery,
	}
}

func item(productID, vendorID string, price float64, quantity int) domain.LineItem {
	return domain.LineItem{ID: productID, Name: productID, Price: price, Quantity: quantity, VendorID: vendorID}
}

func TestOrderRepository(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	ordersDB, err := DBWithSchema(pg.ConnStr, "orders")
	if err != nil {
		t.Fatalf("failed to create orders DB: %v", err)
	}
	defer func() { _ = ordersDB.Close() }()

	repo := orders.NewOrderRepository(ordersDB)
	svc := orders.NewService(repo, orders.Events{}, discardLogger())

	created, err := svc.Checkout(ctx, checkout("cust-1", domain.DeliveryExpress,
		item("ITEM-001", "vendor-1", 19.99, 3),
		item("ITEM-003", "vendor-2", 0.1, 2),
	))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	t.Run("round trips every field", func(t *testing.T) {
		got, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("failed to fetch order: %v", err)
		}
		if got == nil {
			t.Fatal("order not found in database")
		}
		if got.Total != 210.17 || got.DeliveryCost != 150 || got.DeliveryType != domain.DeliveryExpress {
			t.Errorf("unexpected pricing: %+v", got)
		}
		if len(got.Items) != 2 || got.Items[1].VendorID != "vendor-2" || got.Items[0].Status() != domain.ItemStatusPending {
			t.Errorf("unexpected items: %+v", got.Items)
		}
		if got.ShippingInfo.City != "Lisboa" || got.CustomerEmail != "cust-1@example.com" {
			t.Errorf("unexpected customer data: %+v", got)
		}
		if got.EstimatedDelivery == nil || got.ProcessedAt != nil || got.ProcessedBy != "" {
			t.Errorf("unexpected lifecycle fields: %+v", got)
		}
		if d := got.CreatedAt.Sub(created.CreatedAt.Time); d < -time.Microsecond || d > time.Microsecond {
			t.Errorf("created_at drifted: %v vs %v", got.CreatedAt, created.CreatedAt)
		}
	})

	t.Run("missing and malformed ids read as absent", func(t *testing.T) {
		for _, id := range []string{"00000000-0000-0000-0000-000000000000", "not-a-uuid"} {
			got, err := repo.GetByID(ctx, id)
			if err != nil || got != nil {
				t.Errorf("GetByID(%q) = %v, %v", id, got, err)
			}
		}
	})

	t.Run("mutate rewrites items in a transaction", func(t *testing.T) {
		updated, err := repo.Mutate(ctx, created.ID, func(o *domain.Order) error {
			o.Items[0].ItemStatus = domain.ItemStatusShipped
			o.Status = domain.AggregateStatus(o.Items)
			return nil
		})
		if err != nil {
			t.Fatalf("mutate failed: %v", err)
		}
		if updated.Items[0].Status() != domain.ItemStatusShipped {
			t.Errorf("unexpected item status %s", updated.Items[0].Status())
		}

		stop := errors.New("stop")
		if _, err := repo.Mutate(ctx, created.ID, func(o *domain.Order) error {
			o.Status = domain.OrderStatusCancelled
			return stop
		}); !errors.Is(err, stop) {
			t.Fatalf("expected callback error, got %v", err)
		}

		got, _ := repo.GetByID(ctx, created.ID)
		if got.Status == domain.OrderStatusCancelled {
			t.Error("failed mutation must roll back")
		}
	})

	t.Run("update keeps unset fields", func(t *testing.T) {
		processing := domain.OrderStatusProcessing
		now := time.Now().UTC()
		by := "vendor-1"
		updated, err := repo.Update(ctx, created.ID, domain.OrderUpdate{
			Status:      &processing,
			ProcessedAt: &now,
			ProcessedBy: &by,
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.Status != processing || updated.ProcessedBy != "vendor-1" || len(updated.Items) != 2 {
			t.Errorf("unexpected order after update: %+v", updated)
		}
	})

	t.Run("lists newest first", func(t *testing.T) {
		second, err := svc.Checkout(ctx, checkout("cust-2", domain.DeliveryNormal, item("ITEM-002", "vendor-1", 5, 1)))
		if err != nil {
			t.Fatal(err)
		}

		all, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(all) != 2 || all[0].ID != second.ID {
			t.Errorf("expected newest first, got %d orders", len(all))
		}

		mine, err := svc.List(ctx, "cust-2")
		if err != nil || len(mine) != 1 {
			t.Errorf("expected one order for cust-2, got %d (%v)", len(mine), err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete(ctx, created.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := repo.Delete(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestInventoryReserve(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	inventoryDB, err := DBWithSchema(pg.ConnStr, "inventory")
	if err != nil {
		t.Fatalf("failed to create inventory DB: %v", err)
	}
	defer func() { _ = inventoryDB.Close() }()

	repo := inventory.NewInventoryRepository(inventoryDB)

	levels, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("failed to list stock: %v", err)
	}
	if len(levels) != 5 {
		t.Fatalf("expected 5 seeded products, got %d", len(levels))
	}

	if err := repo.Reserve(ctx, "ITEM-004", 4); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	stock, err := repo.GetStock(ctx, "ITEM-004")
	if err != nil {
		t.Fatal(err)
	}
	if stock.Available != 6 || stock.Reserved != 4 || stock.VendorID != "vendor-2" {
		t.Errorf("unexpected stock after reserve: %+v", stock)
	}

	if err := repo.Reserve(ctx, "ITEM-004", 7); !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if err := repo.Release(ctx, "ITEM-004", 5); !errors.Is(err, inventory.ErrInsufficientReserved) {
		t.Errorf("expected ErrInsufficientReserved, got %v", err)
	}
	if err := repo.Release(ctx, "ITEM-004", 4); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	stock, _ = repo.GetStock(ctx, "ITEM-004")
	if stock.Available != 10 || stock.Reserved != 0 {
		t.Errorf("unexpected stock after release: %+v", stock)
	}

	missing, err := repo.GetStock(ctx, "ITEM-999")
	if err != nil || missing != nil {
		t.Errorf("expected missing product to read as nil, got %v, %v", missing, err)
	}
}

func TestDispatchAgainstPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	ordersDB, err := DBWithSchema(pg.ConnStr, "orders")
	if err != nil {
		t.Fatalf("failed to create orders DB: %v", err)
	}
	defer func() { _ = ordersDB.Close() }()

	repo := orders.NewOrderRepository(ordersDB)
	svc := orders.NewService(repo, orders.Events{}, discardLogger())

	normal, err := svc.Checkout(ctx, checkout("cust-1", domain.DeliveryNormal, item("ITEM-001", "vendor-1", 10, 1)))
	if err != nil {
		t.Fatal(err)
	}
	express, err := svc.Checkout(ctx, checkout("cust-2", domain.DeliveryExpress,
		item("ITEM-002", "vendor-1", 10, 1),
		item("ITEM-003", "vendor-2", 10, 1),
	))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Checkout(ctx, checkout("cust-3", domain.DeliveryExpress, item("ITEM-003", "vendor-2", 10, 1))); err != nil {
		t.Fatal(err)
	}

	ctrl := dispatch.NewController(repo, discardLogger())

	n, err := ctrl.Refresh(ctx, "vendor-1")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 queued orders for vendor-1, got %d", n)
	}

	next, err := ctrl.DispatchNext(ctx, "vendor-1", "staff-1")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if next == nil || next.ID != express.ID {
		t.Fatalf("expected express order first, got %+v", next)
	}

	stored, _ := repo.GetByID(ctx, express.ID)
	if stored.Status != domain.OrderStatusProcessing || stored.ProcessedBy != "staff-1" || stored.ProcessedAt == nil {
		t.Errorf("unexpected dispatched order: %+v", stored)
	}

	t.Run("item status aggregates per order", func(t *testing.T) {
		updated, err := ctrl.UpdateItemStatus(ctx, express.ID, "ITEM-002", "vendor-1", domain.ItemStatusShipped)
		if err != nil {
			t.Fatalf("item update failed: %v", err)
		}
		if updated.Status != domain.OrderStatusProcessing {
			t.Errorf("one shipped and one pending item should aggregate to processing, got %s", updated.Status)
		}

		updated, err = ctrl.UpdateItemStatus(ctx, express.ID, "ITEM-003", "vendor-2", domain.ItemStatusShipped)
		if err != nil {
			t.Fatalf("item update failed: %v", err)
		}
		if updated.Status != domain.OrderStatusShipped {
			t.Errorf("expected shipped, got %s", updated.Status)
		}

		if _, err := ctrl.UpdateItemStatus(ctx, express.ID, "ITEM-003", "vendor-1", domain.ItemStatusDelivered); !errors.Is(err, dispatch.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("refresh drops dispatched orders", func(t *testing.T) {
		n, err := ctrl.Refresh(ctx, "vendor-1")
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("expected 1 order left, got %d", n)
		}
		if head, _ := ctrl.Peek(); head.ID != normal.ID {
			t.Errorf("expected %s at head, got %s", normal.ID, head.ID)
		}
	})

	t.Run("vendor view", func(t *testing.T) {
		view, err := svc.Vendor(ctx, "vendor-2", "")
		if err != nil {
			t.Fatal(err)
		}
		if view.Counts.All != 2 || view.Counts.Shipped != 1 || view.Counts.Pending != 1 {
			t.Errorf("unexpected vendor counts: %+v", view.Counts)
		}
	})
}

func TestConcurrentItemStatusUpdates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	ordersDB, err := DBWithSchema(pg.ConnStr, "orders")
	if err != nil {
		t.Fatalf("failed to create orders DB: %v", err)
	}
	defer func() { _ = ordersDB.Close() }()

	repo := orders.NewOrderRepository(ordersDB)
	svc := orders.NewService(repo, orders.Events{}, discardLogger())

	const vendors = 6
	var items []domain.LineItem
	for i := 0; i < vendors; i++ {
		items = append(items, item(fmt.Sprintf("ITEM-%03d", i+1), fmt.Sprintf("vendor-%d", i+1), 10, 1))
	}
	order, err := svc.Checkout(ctx, checkout("cust-1", domain.DeliveryNormal, items...))
	if err != nil {
		t.Fatal(err)
	}

	statuses := []domain.ItemStatus{domain.ItemStatusShipped, domain.ItemStatusDelivered, domain.ItemStatusProcessing}
	want := make(map[string]domain.ItemStatus, vendors)
	for i, it := range items {
		want[it.ID] = statuses[i%len(statuses)]
	}

	sessions := dispatch.NewSessions(func(string) *dispatch.Controller {
		return dispatch.NewController(repo, discardLogger())
	})

	var wg sync.WaitGroup
	errs := make(chan error, vendors)
	for _, it := range items {
		wg.Add(1)
		go func(it domain.LineItem) {
			defer wg.Done()
			ctrl := sessions.For(it.VendorID)
			if _, err := ctrl.UpdateItemStatus(ctx, order.ID, it.ID, it.VendorID, want[it.ID]); err != nil {
				errs <- fmt.Errorf("%s: %w", it.ID, err)
			}
		}(it)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("item update failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range stored.Items {
		if it.ItemStatus != want[it.ID] {
			t.Errorf("%s: expected %s, got %s", it.ID, want[it.ID], it.ItemStatus)
		}
	}
	if agg := domain.AggregateStatus(stored.Items); stored.Status != agg {
		t.Errorf("order status %s does not match aggregate %s", stored.Status, agg)
	}
	if stored.Status != domain.OrderStatusProcessing {
		t.Errorf("expected processing, got %s", stored.Status)
	}
}
