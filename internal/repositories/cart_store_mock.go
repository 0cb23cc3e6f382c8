package repositories

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/models"
)

// MockCartStore is an in-memory implementation of CartStore.
type MockCartStore struct {
	carts map[string][]models.CartLineItem
	mu    sync.RWMutex
}

// NewMockCartStore creates a new instance of MockCartStore.
func NewMockCartStore() *MockCartStore {
	return &MockCartStore{
		carts: make(map[string][]models.CartLineItem),
	}
}

// GetCart returns the cart for an owner, empty if none exists yet.
func (s *MockCartStore) GetCart(ctx context.Context, ownerID string) (models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(ownerID), nil
}

// AddItem appends a line or, if the product is already present,
// increases that line's quantity.
func (s *MockCartStore) AddItem(ctx context.Context, ownerID string, item models.CartLineItem) (models.Cart, error) {
	if item.Quantity <= 0 {
		return models.Cart{}, fmt.Errorf("quantity must be positive, got %d", item.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[ownerID]
	merged := false
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			items[i].StockAtAddTime = item.StockAtAddTime
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}
	s.carts[ownerID] = items
	return s.snapshot(ownerID), nil
}

// SetItemQuantity sets the absolute quantity of an existing line.
func (s *MockCartStore) SetItemQuantity(ctx context.Context, ownerID, productID string, quantity int) (models.Cart, error) {
	if quantity <= 0 {
		return models.Cart{}, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[ownerID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
			s.carts[ownerID] = items
			return s.snapshot(ownerID), nil
		}
	}
	return models.Cart{}, fmt.Errorf("cart line for product %s: %w", productID, models.ErrNotFound)
}

// RemoveItem deletes a line. Removing an absent product is a no-op.
func (s *MockCartStore) RemoveItem(ctx context.Context, ownerID, productID string) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[ownerID]
	for i := range items {
		if items[i].ProductID == productID {
			s.carts[ownerID] = append(items[:i], items[i+1:]...)
			break
		}
	}
	return s.snapshot(ownerID), nil
}

// ClearCart removes every line for an owner.
func (s *MockCartStore) ClearCart(ctx context.Context, ownerID string) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, ownerID)
	return s.snapshot(ownerID), nil
}

// snapshot builds a Cart copy with a freshly derived total. Callers must
// hold at least a read lock.
func (s *MockCartStore) snapshot(ownerID string) models.Cart {
	cart := models.Cart{OwnerID: ownerID}
	cart.Items = make([]models.CartLineItem, len(s.carts[ownerID]))
	copy(cart.Items, s.carts[ownerID])
	cart.Total = cart.ComputeTotal()
	return cart
}
