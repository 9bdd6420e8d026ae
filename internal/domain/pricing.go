package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Subtotal     float64
	DeliveryCost float64
	Total        float64
}

// PriceOrder sums line totals in decimal so that subtotal + delivery cost
// equals total exactly at two decimal places.
func PriceOrder(items []LineItem, delivery DeliveryType) Quote {
	subtotal := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	cost := decimal.NewFromFloat(delivery.Cost()).Round(2)

	return Quote{
		Subtotal:     subtotal.InexactFloat64(),
		DeliveryCost: cost.InexactFloat64(),
		Total:        subtotal.Add(cost).InexactFloat64(),
	}
}

// EstimatedDelivery returns the promised delivery date for an order placed at placedAt.
func EstimatedDelivery(placedAt time.Time, delivery DeliveryType) time.Time {
	return placedAt.Add(delivery.Window())
}
