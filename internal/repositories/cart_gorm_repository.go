package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/models"
)

// cartLineRow is the persisted shape of one cart line.
type cartLineRow struct {
	OwnerID        string `gorm:"primaryKey;type:varchar(36)"`
	ProductID      string `gorm:"primaryKey;type:varchar(36)"`
	ProductName    string
	SellerID       string          `gorm:"type:varchar(36)"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2)"`
	Quantity       int
	StockAtAddTime int
	ImageRef       string `gorm:"type:varchar(255)"`
}

func (cartLineRow) TableName() string { return "cart_lines" }

// GORMCartStore is a GORM implementation of CartStore.
type GORMCartStore struct {
	db *gorm.DB
}

// NewGORMCartStore creates a new instance of GORMCartStore.
func NewGORMCartStore(db *gorm.DB) *GORMCartStore {
	return &GORMCartStore{
		db: db,
	}
}

// GetCart retrieves the full cart for an owner.
func (s *GORMCartStore) GetCart(ctx context.Context, ownerID string) (models.Cart, error) {
	return s.snapshot(ctx, ownerID)
}

// AddItem upserts a line: an existing product's quantity is increased,
// a new product is appended.
func (s *GORMCartStore) AddItem(ctx context.Context, ownerID string, item models.CartLineItem) (models.Cart, error) {
	if item.Quantity <= 0 {
		return models.Cart{}, fmt.Errorf("quantity must be positive, got %d", item.Quantity)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row cartLineRow
		err := tx.First(&row, "owner_id = ? AND product_id = ?", ownerID, item.ProductID).Error
		switch {
		case err == nil:
			row.Quantity += item.Quantity
			row.StockAtAddTime = item.StockAtAddTime
			return tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&cartLineRow{
				OwnerID:        ownerID,
				ProductID:      item.ProductID,
				ProductName:    item.ProductName,
				SellerID:       item.SellerID,
				UnitPrice:      item.UnitPrice,
				Quantity:       item.Quantity,
				StockAtAddTime: item.StockAtAddTime,
				ImageRef:       item.ImageRef,
			}).Error
		default:
			return err
		}
	})
	if err != nil {
		return models.Cart{}, fmt.Errorf("failed to add cart line: %w", err)
	}
	return s.snapshot(ctx, ownerID)
}

// SetItemQuantity sets the absolute quantity of an existing line.
func (s *GORMCartStore) SetItemQuantity(ctx context.Context, ownerID, productID string, quantity int) (models.Cart, error) {
	if quantity <= 0 {
		return models.Cart{}, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	res := s.db.WithContext(ctx).Model(&cartLineRow{}).
		Where("owner_id = ? AND product_id = ?", ownerID, productID).
		Update("quantity", quantity)
	if res.Error != nil {
		return models.Cart{}, fmt.Errorf("failed to set cart line quantity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Cart{}, fmt.Errorf("cart line for product %s: %w", productID, models.ErrNotFound)
	}
	return s.snapshot(ctx, ownerID)
}

// RemoveItem deletes a line. Removing an absent product is a no-op.
func (s *GORMCartStore) RemoveItem(ctx context.Context, ownerID, productID string) (models.Cart, error) {
	err := s.db.WithContext(ctx).
		Delete(&cartLineRow{}, "owner_id = ? AND product_id = ?", ownerID, productID).Error
	if err != nil {
		return models.Cart{}, fmt.Errorf("failed to remove cart line: %w", err)
	}
	return s.snapshot(ctx, ownerID)
}

// ClearCart removes every line for an owner.
func (s *GORMCartStore) ClearCart(ctx context.Context, ownerID string) (models.Cart, error) {
	err := s.db.WithContext(ctx).Delete(&cartLineRow{}, "owner_id = ?", ownerID).Error
	if err != nil {
		return models.Cart{}, fmt.Errorf("failed to clear cart: %w", err)
	}
	return s.snapshot(ctx, ownerID)
}

func (s *GORMCartStore) snapshot(ctx context.Context, ownerID string) (models.Cart, error) {
	var rows []cartLineRow
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("product_id").Find(&rows).Error; err != nil {
		return models.Cart{}, fmt.Errorf("failed to load cart: %w", err)
	}

	cart := models.Cart{OwnerID: ownerID, Items: make([]models.CartLineItem, 0, len(rows))}
	for _, row := range rows {
		cart.Items = append(cart.Items, models.CartLineItem{
			ProductID:      row.ProductID,
			ProductName:    row.ProductName,
			SellerID:       row.SellerID,
			UnitPrice:      row.UnitPrice,
			Quantity:       row.Quantity,
			StockAtAddTime: row.StockAtAddTime,
			ImageRef:       row.ImageRef,
		})
	}
	cart.Total = cart.ComputeTotal()
	return cart, nil
}
