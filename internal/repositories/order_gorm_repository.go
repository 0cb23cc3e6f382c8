package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/models"
)

// orderRow is the persisted shape of an order header.
type orderRow struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	BuyerID      string `gorm:"index;type:varchar(36)"`
	Status       string `gorm:"type:varchar(32)"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2)"`
	ShipFullName string
	ShipAddress  string
	ShipCity     string
	ShipPhone    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Items        []orderLineRow `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRow) TableName() string { return "orders" }

// orderLineRow is the persisted shape of one order line.
type orderLineRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	OrderID     string `gorm:"index;type:varchar(36)"`
	ProductID   string `gorm:"type:varchar(36)"`
	ProductName string
	SellerID    string          `gorm:"index;type:varchar(36)"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2)"`
	Quantity    int
}

func (orderLineRow) TableName() string { return "order_lines" }

// GORMOrderStore is a GORM implementation of OrderStore.
type GORMOrderStore struct {
	db *gorm.DB
}

// NewGORMOrderStore creates a new instance of GORMOrderStore.
func NewGORMOrderStore(db *gorm.DB) *GORMOrderStore {
	return &GORMOrderStore{
		db: db,
	}
}

// Create persists a new order with its lines.
func (s *GORMOrderStore) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(toOrderRow(order)).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves a single order with its lines.
func (s *GORMOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	err := s.db.WithContext(ctx).Preload("Items").First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	order := fromOrderRow(&row)
	return &order, nil
}

// ListByBuyer returns all orders placed by a buyer.
func (s *GORMOrderStore) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	var rows []orderRow
	err := s.db.WithContext(ctx).Preload("Items").
		Where("buyer_id = ?", buyerID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for buyer %s: %w", buyerID, err)
	}
	return fromOrderRows(rows), nil
}

// ListBySeller returns all orders containing at least one line sold by
// the seller.
func (s *GORMOrderStore) ListBySeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	var rows []orderRow
	err := s.db.WithContext(ctx).Preload("Items").
		Where("id IN (?)", s.db.Model(&orderLineRow{}).Select("order_id").Where("seller_id = ?", sellerID)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for seller %s: %w", sellerID, err)
	}
	return fromOrderRows(rows), nil
}

// UpdateStatus sets a new status and returns the updated order.
func (s *GORMOrderStore) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	res := s.db.WithContext(ctx).Model(&orderRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now()})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update order status for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

// Delete removes an order. Only orders in a terminal status may be
// deleted.
func (s *GORMOrderStore) Delete(ctx context.Context, id string) error {
	order, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !order.Status.Terminal() {
		return fmt.Errorf("order %s is %s: %w", id, order.Status, models.ErrInvalidTransition)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&orderLineRow{}, "order_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete order lines: %w", err)
		}
		if err := tx.Delete(&orderRow{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
}

func toOrderRow(order *models.Order) *orderRow {
	row := &orderRow{
		ID:           order.ID,
		BuyerID:      order.BuyerID,
		Status:       string(order.Status),
		TotalAmount:  order.TotalAmount,
		ShipFullName: order.ShippingAddress.FullName,
		ShipAddress:  order.ShippingAddress.Address,
		ShipCity:     order.ShippingAddress.City,
		ShipPhone:    order.ShippingAddress.Phone,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for _, item := range order.Items {
		row.Items = append(row.Items, orderLineRow{
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SellerID:    item.SellerID,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return row
}

func fromOrderRow(row *orderRow) models.Order {
	order := models.Order{
		ID:          row.ID,
		BuyerID:     row.BuyerID,
		Status:      models.OrderStatus(row.Status),
		TotalAmount: row.TotalAmount,
		ShippingAddress: models.ShippingAddress{
			FullName: row.ShipFullName,
			Address:  row.ShipAddress,
			City:     row.ShipCity,
			Phone:    row.ShipPhone,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	for _, item := range row.Items {
		order.Items = append(order.Items, models.OrderLineItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SellerID:    item.SellerID,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return order
}

func fromOrderRows(rows []orderRow) []models.Order {
	orders := make([]models.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, fromOrderRow(&rows[i]))
	}
	return orders
}

// AutoMigrate creates or updates every table used by the GORM-backed
// stores.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&cartLineRow{},
		&orderRow{},
		&orderLineRow{},
	)
}
