package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/models"
)

// MockOrderStore is an in-memory implementation of OrderStore.
type MockOrderStore struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderStore creates a new instance of MockOrderStore.
func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders: make(map[string]models.Order),
	}
}

// Create stores a new order.
func (s *MockOrderStore) Create(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	s.orders[order.ID] = *order
	return nil
}

// GetByID returns an order by its ID.
func (s *MockOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return &order, nil
}

// ListByBuyer returns all orders placed by a buyer.
func (s *MockOrderStore) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []models.Order
	for _, order := range s.orders {
		if order.BuyerID == buyerID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

// ListBySeller returns all orders containing at least one line sold by
// the seller.
func (s *MockOrderStore) ListBySeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []models.Order
	for _, order := range s.orders {
		for _, item := range order.Items {
			if item.SellerID == sellerID {
				orders = append(orders, order)
				break
			}
		}
	}
	return orders, nil
}

// UpdateStatus sets a new status and returns the updated order.
func (s *MockOrderStore) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	s.orders[id] = order
	return &order, nil
}

// Delete removes an order. Only orders in a terminal status may be
// deleted.
func (s *MockOrderStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	if !order.Status.Terminal() {
		return fmt.Errorf("order %s is %s: %w", id, order.Status, models.ErrInvalidTransition)
	}
	delete(s.orders, id)
	return nil
}
