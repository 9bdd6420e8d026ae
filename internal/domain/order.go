package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced order or item does not exist.
var ErrNotFound = errors.New("not found")

type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusProcessing         OrderStatus = "processing"
	OrderStatusShipped            OrderStatus = "shipped"
	OrderStatusDelivered          OrderStatus = "delivered"
	OrderStatusPartiallyCancelled OrderStatus = "partially_cancelled"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusPartiallyCancelled, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is expected.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusPartiallyCancelled
}

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusShipped    ItemStatus = "shipped"
	ItemStatusDelivered  ItemStatus = "delivered"
	ItemStatusCancelled  ItemStatus = "cancelled"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPending, ItemStatusProcessing, ItemStatusShipped,
		ItemStatusDelivered, ItemStatusCancelled:
		return true
	}
	return false
}

// OrDefault maps an absent status to pending.
func (s ItemStatus) OrDefault() ItemStatus {
	if s == "" {
		return ItemStatusPending
	}
	return s
}

type DeliveryType string

const (
	DeliveryNormal  DeliveryType = "normal"
	DeliveryExpress DeliveryType = "express"
)

func (d DeliveryType) Valid() bool {
	return d == DeliveryNormal || d == DeliveryExpress
}

// Cost is the flat delivery charge added to the subtotal at checkout.
func (d DeliveryType) Cost() float64 {
	if d == DeliveryExpress {
		return 150
	}
	return 50
}

// Window is the promised delivery time measured from checkout.
func (d DeliveryType) Window() time.Duration {
	if d == DeliveryExpress {
		return 2 * 24 * time.Hour
	}
	return 5 * 24 * time.Hour
}

type LineItem struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Price           float64    `json:"price"`
	Quantity        int        `json:"quantity"`
	VendorID        string     `json:"vendor_id"`
	MaxStock        int        `json:"max_stock,omitempty"`
	ItemStatus      ItemStatus `json:"item_status,omitempty"`
	StatusUpdatedAt *Timestamp `json:"status_updated_at,omitempty"`
	StatusUpdatedBy string     `json:"status_updated_by,omitempty"`
}

// Status returns the item status with the pending default applied.
func (i LineItem) Status() ItemStatus {
	return i.ItemStatus.OrDefault()
}

type ShippingInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
}

type Order struct {
	ID                string       `json:"id"`
	CustomerID        string       `json:"customer_id"`
	CustomerEmail     string       `json:"customer_email"`
	Items             []LineItem   `json:"items"`
	ShippingInfo      ShippingInfo `json:"shipping_info"`
	DeliveryType      DeliveryType `json:"delivery_type"`
	Subtotal          float64      `json:"subtotal"`
	DeliveryCost      float64      `json:"delivery_cost"`
	Total             float64      `json:"total"`
	Status            OrderStatus  `json:"status"`
	CreatedAt         Timestamp    `json:"created_at"`
	EstimatedDelivery *time.Time   `json:"estimated_delivery,omitempty"`
	ProcessedAt       *time.Time   `json:"processed_at,omitempty"`
	ProcessedBy       string       `json:"processed_by,omitempty"`
	UpdatedAt         *time.Time   `json:"updated_at,omitempty"`
	UpdatedBy         string       `json:"updated_by,omitempty"`
}

// HasVendor reports whether at least one line item belongs to vendorID.
func (o *Order) HasVendor(vendorID string) bool {
	for _, item := range o.Items {
		if item.VendorID == vendorID {
			return true
		}
	}
	return false
}

// VendorItems returns the subset of line items owned by vendorID.
func (o *Order) VendorItems(vendorID string) []LineItem {
	var items []LineItem
	for _, item := range o.Items {
		if item.VendorID == vendorID {
			items = append(items, item)
		}
	}
	return items
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	if o.Items != nil {
		items := make([]LineItem, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	return o
}

// OrderUpdate is a partial update; nil fields are left untouched.
type OrderUpdate struct {
	Status      *OrderStatus
	ProcessedAt *time.Time
	ProcessedBy *string
	UpdatedAt   *time.Time
	UpdatedBy   *string
}

// Apply writes the non-nil fields of u onto o.
func (u OrderUpdate) Apply(o *Order) {
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.ProcessedAt != nil {
		t := *u.ProcessedAt
		o.ProcessedAt = &t
	}
	if u.ProcessedBy != nil {
		o.ProcessedBy = *u.ProcessedBy
	}
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		o.UpdatedAt = &t
	}
	if u.UpdatedBy != nil {
		o.UpdatedBy = *u.UpdatedBy
	}
}
