package domain

import (
	"fmt"
	"strings"
)

// AggregateStatus derives the overall order status from its line items.
// Rules are evaluated in order and the first match wins:
//
//  1. no items                                  -> pending
//  2. every item delivered                      -> delivered
//  3. any item cancelled                        -> partially_cancelled
//  4. every item shipped or delivered           -> shipped
//  5. any item processing, shipped or delivered -> processing
//  6. otherwise                                 -> pending
//
// Whole-order cancellation is never produced here; it is set explicitly.
func AggregateStatus(items []LineItem) OrderStatus {
	statuses := make([]ItemStatus, len(items))
	for i, item := range items {
		statuses[i] = item.Status()
	}
	return AggregateItemStatuses(statuses)
}

// AggregateItemStatuses applies the AggregateStatus rules to bare statuses.
// Unknown values count as neither progressed nor cancelled.
func AggregateItemStatuses(statuses []ItemStatus) OrderStatus {
	total := len(statuses)
	if total == 0 {
		return OrderStatusPending
	}

	counts := countStatuses(statuses)
	delivered := counts[ItemStatusDelivered]
	shipped := counts[ItemStatusShipped]
	processing := counts[ItemStatusProcessing]

	switch {
	case delivered == total:
		return OrderStatusDelivered
	case counts[ItemStatusCancelled] > 0:
		return OrderStatusPartiallyCancelled
	case shipped+delivered == total:
		return OrderStatusShipped
	case processing+shipped+delivered > 0:
		return OrderStatusProcessing
	default:
		return OrderStatusPending
	}
}

var summaryOrder = []ItemStatus{
	ItemStatusDelivered,
	ItemStatusShipped,
	ItemStatusProcessing,
	ItemStatusPending,
	ItemStatusCancelled,
}

// StatusSummary renders per-status counts such as "2 delivered, 1 pending".
func StatusSummary(items []LineItem) string {
	if len(items) == 0 {
		return "No items"
	}

	statuses := make([]ItemStatus, len(items))
	for i, item := range items {
		statuses[i] = item.Status()
	}
	counts := countStatuses(statuses)

	parts := make([]string, 0, len(summaryOrder))
	for _, status := range summaryOrder {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	if len(parts) == 0 {
		return "No status available"
	}
	return strings.Join(parts, ", ")
}

// PrimaryItemStatus picks the most advanced status among a vendor's items,
// used to bucket orders in the vendor order view.
func PrimaryItemStatus(statuses []ItemStatus) ItemStatus {
	counts := countStatuses(statuses)
	for _, status := range []ItemStatus{ItemStatusDelivered, ItemStatusShipped, ItemStatusProcessing} {
		if counts[status] > 0 {
			return status
		}
	}
	return ItemStatusPending
}

func countStatuses(statuses []ItemStatus) map[ItemStatus]int {
	counts := make(map[ItemStatus]int, len(summaryOrder))
	for _, s := range statuses {
		counts[s.OrDefault()]++
	}
	return counts
}
