package models

import "github.com/shopspring/decimal"

// CartLineItem is one product-quantity-price tuple within a cart,
// uniquely keyed by ProductID.
type CartLineItem struct {
	ProductID      string          `json:"product_id" validate:"required"`
	ProductName    string          `json:"product_name"`
	SellerID       string          `json:"seller_id"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity" validate:"gt=0"`
	StockAtAddTime int             `json:"stock_at_add_time"`
	ImageRef       string          `json:"image_ref,omitempty"`
}

// Subtotal returns unit price times quantity.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the canonical shopping cart. Total is always derived from the
// items; it is recomputed whenever a snapshot is published, never stored
// independently.
type Cart struct {
	OwnerID string          `json:"owner_id"`
	Items   []CartLineItem  `json:"items"`
	Total   decimal.Decimal `json:"total"`
}

// ComputeTotal sums unit price times quantity over all items.
func (c Cart) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount returns the total number of units across all lines (the
// navbar badge count).
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Clone returns a snapshot safe to hand to subscribers.
func (c Cart) Clone() Cart {
	out := Cart{OwnerID: c.OwnerID, Total: c.Total}
	out.Items = make([]CartLineItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}
