package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductRepository defines the product lookup contract. GetByID returns
// an error wrapping models.ErrNotFound when the product no longer
// exists, so callers can tell a vanished product from a transient fault.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
