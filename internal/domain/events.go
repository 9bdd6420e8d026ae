package domain

import "time"

const (
	TopicOrderCreated       = "order.created"
	TopicOrderCancelled     = "order.cancelled"
	TopicOrderStatusChanged = "order.status_changed"
)

type OrderCreatedEvent struct {
	EventID       string       `json:"event_id"`
	OrderID       string       `json:"order_id"`
	CustomerID    string       `json:"customer_id"`
	CustomerEmail string       `json:"customer_email"`
	DeliveryType  DeliveryType `json:"delivery_type"`
	Items         []LineItem   `json:"items"`
	Total         float64      `json:"total"`
	Timestamp     time.Time    `json:"timestamp"`
}

type OrderCancelledEvent struct {
	EventID       string     `json:"event_id"`
	OrderID       string     `json:"order_id"`
	CustomerEmail string     `json:"customer_email"`
	Items         []LineItem `json:"items"`
	CancelledBy   string     `json:"cancelled_by"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Status change reasons carried by OrderStatusChangedEvent.
const (
	ReasonDispatched = "dispatched"
	ReasonItemStatus = "item_status"
	ReasonOverride   = "override"
)

type OrderStatusChangedEvent struct {
	EventID        string      `json:"event_id"`
	OrderID        string      `json:"order_id"`
	CustomerEmail  string      `json:"customer_email"`
	Status         OrderStatus `json:"status"`
	PreviousStatus OrderStatus `json:"previous_status"`
	Reason         string      `json:"reason"`
	ItemID         string      `json:"item_id,omitempty"`
	ItemStatus     ItemStatus  `json:"item_status,omitempty"`
	ChangedBy      string      `json:"changed_by"`
	Timestamp      time.Time   `json:"timestamp"`
}
