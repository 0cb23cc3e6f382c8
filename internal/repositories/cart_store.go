package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartStore defines the remote cart storage contract. Every mutator
// returns the full updated snapshot so the engine can replace its local
// copy with confirmed state only.
//
// AddItem merges at the product level: adding a product that is already
// in the cart increases that line's quantity instead of duplicating the
// line. RemoveItem is idempotent: removing an absent product is a no-op
// success.
type CartStore interface {
	GetCart(ctx context.Context, ownerID string) (models.Cart, error)
	AddItem(ctx context.Context, ownerID string, item models.CartLineItem) (models.Cart, error)
	SetItemQuantity(ctx context.Context, ownerID, productID string, quantity int) (models.Cart, error)
	RemoveItem(ctx context.Context, ownerID, productID string) (models.Cart, error)
	ClearCart(ctx context.Context, ownerID string) (models.Cart, error)
}
