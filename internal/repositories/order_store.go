package repositories

import (
	"context"

	"storefront/internal/models"
)

// OrderStore defines the remote order storage contract. UpdateStatus
// returns the updated order so callers can replace their in-memory copy;
// an error wrapping models.ErrNotFound signals the caller's collection
// is stale and must be reloaded in full.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	// Delete is restricted to orders in a terminal status.
	Delete(ctx context.Context, id string) error
}
