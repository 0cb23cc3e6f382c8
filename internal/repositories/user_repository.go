package repositories

import (
	"storefront/internal/models"
)

// UserRepository defines the interface for user account access used by
// the auth endpoint.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
}
