package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a product in the authoritative catalog.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string          `json:"name" validate:"required,min=3,max=100"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"`
	Stock       int             `json:"stock" validate:"gte=0"`
	SellerID    string          `json:"seller_id" gorm:"type:varchar(36)"`
	ImageRef    string          `json:"image_ref" gorm:"type:varchar(255)"`
	gorm.Model                  // CreatedAt, UpdatedAt, DeletedAt
}
