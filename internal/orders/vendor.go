package orders

import (
	"sort"
	"time"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

// VendorOrder is an order as one vendor sees it: only its own line items,
// bucketed by the most advanced of their statuses.
type VendorOrder struct {
	domain.Order
	VendorItems   []domain.LineItem `json:"vendor_items"`
	PrimaryStatus domain.ItemStatus `json:"primary_status"`
	Summary       string            `json:"summary"`
}

type VendorCounts struct {
	All        int `json:"all"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Shipped    int `json:"shipped"`
	Delivered  int `json:"delivered"`
}

type VendorView struct {
	VendorID string        `json:"vendor_id"`
	Orders   []VendorOrder `json:"orders"`
	Counts   VendorCounts  `json:"counts"`
}

// VendorOrders keeps the orders holding at least one item of vendorID,
// newest first, and tallies them by primary item status.
func VendorOrders(orders []domain.Order, vendorID string) VendorView {
	view := VendorView{VendorID: vendorID, Orders: []VendorOrder{}}

	for _, o := range orders {
		items := o.VendorItems(vendorID)
		if len(items) == 0 {
			continue
		}

		statuses := make([]domain.ItemStatus, len(items))
		for i, item := range items {
			statuses[i] = item.Status()
		}

		vo := VendorOrder{
			Order:         o,
			VendorItems:   items,
			PrimaryStatus: domain.PrimaryItemStatus(statuses),
			Summary:       domain.StatusSummary(items),
		}
		view.Orders = append(view.Orders, vo)

		view.Counts.All++
		switch vo.PrimaryStatus {
		case domain.ItemStatusDelivered:
			view.Counts.Delivered++
		case domain.ItemStatusShipped:
			view.Counts.Shipped++
		case domain.ItemStatusProcessing:
			view.Counts.Processing++
		default:
			view.Counts.Pending++
		}
	}

	now := time.Now()
	sort.SliceStable(view.Orders, func(i, j int) bool {
		return view.Orders[i].CreatedAt.Millis(now) > view.Orders[j].CreatedAt.Millis(now)
	})
	return view
}

// FilterByItemStatus narrows view to orders where any of the vendor's items
// is in status. Counts are left as computed over the unfiltered view.
func FilterByItemStatus(view VendorView, status domain.ItemStatus) VendorView {
	filtered := make([]VendorOrder, 0, len(view.Orders))
	for _, vo := range view.Orders {
		for _, item := range vo.VendorItems {
			if item.Status() == status {
				filtered = append(filtered, vo)
				break
			}
		}
	}
	view.Orders = filtered
	return view
}
