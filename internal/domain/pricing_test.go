package domain

import (
	"testing"
	"time"
)

func TestPriceOrder(t *testing.T) {
	lines := []LineItem{
		{ID: "a", Price: 19.99, Quantity: 3},
		{ID: "b", Price: 0.1, Quantity: 2},
	}

	t.Run("normal delivery", func(t *testing.T) {
		q := PriceOrder(lines, DeliveryNormal)
		if q.Subtotal != 60.17 {
			t.Errorf("expected subtotal 60.17, got %v", q.Subtotal)
		}
		if q.DeliveryCost != 50 {
			t.Errorf("expected delivery cost 50, got %v", q.DeliveryCost)
		}
		if q.Total != 110.17 {
			t.Errorf("expected total 110.17, got %v", q.Total)
		}
	})

	t.Run("express delivery", func(t *testing.T) {
		q := PriceOrder(lines, DeliveryExpress)
		if q.DeliveryCost != 150 || q.Total != 210.17 {
			t.Errorf("unexpected quote: %+v", q)
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		q := PriceOrder(nil, DeliveryNormal)
		if q.Subtotal != 0 || q.Total != 50 {
			t.Errorf("unexpected quote: %+v", q)
		}
	})
}

func TestEstimatedDelivery(t *testing.T) {
	placed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := EstimatedDelivery(placed, DeliveryExpress); !got.Equal(placed.AddDate(0, 0, 2)) {
		t.Errorf("express: got %v", got)
	}
	if got := EstimatedDelivery(placed, DeliveryNormal); !got.Equal(placed.AddDate(0, 0, 5)) {
		t.Errorf("normal: got %v", got)
	}
}

func TestOrder_VendorHelpers(t *testing.T) {
	o := Order{Items: []LineItem{
		{ID: "a", VendorID: "v1"},
		{ID: "b", VendorID: "v2"},
		{ID: "c", VendorID: "v1"},
	}}

	if !o.HasVendor("v2") || o.HasVendor("v3") {
		t.Error("HasVendor mismatch")
	}
	if got := o.VendorItems("v1"); len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("unexpected vendor items: %+v", got)
	}

	clone := o.Clone()
	clone.Items[0].ItemStatus = ItemStatusShipped
	if o.Items[0].ItemStatus != "" {
		t.Error("clone shares items with original")
	}
}
