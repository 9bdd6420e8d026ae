package orders

import (
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

func vendorFixture() []domain.Order {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	item := func(id, vendor string, status domain.ItemStatus) domain.LineItem {
		return domain.LineItem{ID: id, VendorID: vendor, Quantity: 1, ItemStatus: status}
	}

	return []domain.Order{
		{
			ID:        "old",
			CreatedAt: domain.NewTimestamp(base),
			Items: []domain.LineItem{
				item("p1", "v1", domain.ItemStatusDelivered),
				item("p2", "v2", domain.ItemStatusPending),
			},
		},
		{
			ID:        "other-vendor",
			CreatedAt: domain.NewTimestamp(base.Add(time.Hour)),
			Items:     []domain.LineItem{item("p3", "v2", domain.ItemStatusShipped)},
		},
		{
			ID:        "new",
			CreatedAt: domain.NewTimestamp(base.Add(2 * time.Hour)),
			Items: []domain.LineItem{
				item("p4", "v1", ""),
				item("p5", "v1", domain.ItemStatusShipped),
			},
		},
		{
			ID:        "mid",
			CreatedAt: domain.NewTimestamp(base.Add(90 * time.Minute)),
			Items:     []domain.LineItem{item("p6", "v1", domain.ItemStatusProcessing)},
		},
	}
}

func TestVendorOrders(t *testing.T) {
	view := VendorOrders(vendorFixture(), "v1")

	var ids []string
	for _, vo := range view.Orders {
		ids = append(ids, vo.ID)
	}
	want := []string{"new", "mid", "old"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}

	expected := VendorCounts{All: 3, Pending: 0, Processing: 1, Shipped: 1, Delivered: 1}
	if view.Counts != expected {
		t.Errorf("expected counts %+v, got %+v", expected, view.Counts)
	}

	old := view.Orders[2]
	if len(old.VendorItems) != 1 || old.VendorItems[0].ID != "p1" {
		t.Errorf("expected only v1's item on the old order, got %+v", old.VendorItems)
	}
	if len(old.Items) != 2 {
		t.Errorf("full item list should be kept, got %d items", len(old.Items))
	}

	newest := view.Orders[0]
	if newest.PrimaryStatus != domain.ItemStatusShipped {
		t.Errorf("expected primary status shipped, got %s", newest.PrimaryStatus)
	}
	if newest.Summary != "1 shipped, 1 pending" {
		t.Errorf("unexpected summary %q", newest.Summary)
	}
}

func TestVendorOrders_UnknownVendor(t *testing.T) {
	view := VendorOrders(vendorFixture(), "v9")
	if len(view.Orders) != 0 || view.Counts.All != 0 {
		t.Errorf("expected empty view, got %+v", view)
	}
	if view.Orders == nil {
		t.Error("orders should encode as an empty list")
	}
}

func TestFilterByItemStatus(t *testing.T) {
	view := VendorOrders(vendorFixture(), "v1")

	tests := []struct {
		status domain.ItemStatus
		want   []string
	}{
		{domain.ItemStatusPending, []string{"new"}},
		{domain.ItemStatusShipped, []string{"new"}},
		{domain.ItemStatusDelivered, []string{"old"}},
		{domain.ItemStatusCancelled, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := FilterByItemStatus(view, tt.status)
			if len(got.Orders) != len(tt.want) {
				t.Fatalf("expected %v, got %d orders", tt.want, len(got.Orders))
			}
			for i, id := range tt.want {
				if got.Orders[i].ID != id {
					t.Errorf("expected %s at %d, got %s", id, i, got.Orders[i].ID)
				}
			}
			if got.Counts.All != 3 {
				t.Errorf("counts should describe the unfiltered view, got %+v", got.Counts)
			}
		})
	}
}
