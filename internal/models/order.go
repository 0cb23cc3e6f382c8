package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is an order lifecycle state. The string values are the
// wire values used by the order store.
type OrderStatus string

const (
	OrderPending          OrderStatus = "PENDING"
	OrderReadyForDelivery OrderStatus = "READY_FOR_DELIVERY"
	OrderShipped          OrderStatus = "SHIPPED"
	OrderDelivered        OrderStatus = "DELIVERED"
	OrderCancelled        OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderReadyForDelivery, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// ShippingAddress is the delivery address captured at checkout.
type ShippingAddress struct {
	FullName string `json:"full_name" validate:"required,min=2"`
	Address  string `json:"address" validate:"required,min=5"`
	City     string `json:"city" validate:"required,min=2"`
	Phone    string `json:"phone" validate:"required,min=8"`
}

// OrderLineItem mirrors a cart line but is an immutable snapshot taken
// at order-creation time. Later product price or stock changes never
// affect a placed order.
type OrderLineItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SellerID    string          `json:"seller_id"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// Order represents a placed order. It is mutated only through status
// transitions.
type Order struct {
	ID              string          `json:"id"`
	BuyerID         string          `json:"buyer_id"`
	Items           []OrderLineItem `json:"items"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BuyerOrderStats is the buyer-facing aggregate over an order
// collection. Cancelled orders count toward TotalOrders but never
// toward TotalSpent.
type BuyerOrderStats struct {
	TotalOrders int             `json:"total_orders"`
	Delivered   int             `json:"delivered"`
	InProgress  int             `json:"in_progress"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

// SellerOrderStats is the seller-facing aggregate. Cancelled orders
// count toward TotalOrders but never toward TotalRevenue.
type SellerOrderStats struct {
	TotalOrders  int             `json:"total_orders"`
	Pending      int             `json:"pending"`
	Shipped      int             `json:"shipped"`
	Delivered    int             `json:"delivered"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}
