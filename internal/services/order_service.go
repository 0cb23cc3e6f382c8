package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/rabbitmq"
)

// nextStatuses is the canonical order lifecycle table. Every transition
// request is validated here, at the single entry point, never by
// scattered per-caller checks.
var nextStatuses = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:          {models.OrderReadyForDelivery, models.OrderCancelled},
	models.OrderReadyForDelivery: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:          {models.OrderDelivered},
	models.OrderDelivered:        {},
	models.OrderCancelled:        {},
}

// OrderService drives order creation and role-gated status transitions,
// and computes aggregate statistics over order collections.
type OrderService struct {
	orders   repositories.OrderStore
	cart     *CartEngine
	session  *SessionStore
	mqClient *rabbitmq.Client // nil disables event publication
	validate *validator.Validate
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders repositories.OrderStore, cart *CartEngine, session *SessionStore, mqClient *rabbitmq.Client) *OrderService {
	return &OrderService{
		orders:   orders,
		cart:     cart,
		session:  session,
		mqClient: mqClient,
		validate: validator.New(),
	}
}

// CreateFromCart places an order for the current session from the
// current cart snapshot. The cart must be non-empty and fully valid
// (checkout-eligible). Line items are snapshotted into immutable order
// items; later product changes never affect the placed order. On
// success the cart is cleared; a clearing failure is reported in the
// log but never blocks the confirmed order.
func (s *OrderService) CreateFromCart(ctx context.Context, address models.ShippingAddress) (*models.Order, error) {
	identity := s.session.Identity()
	if identity == nil {
		return nil, fmt.Errorf("checkout requires a session: %w", models.ErrForbidden)
	}

	if err := s.validate.Struct(address); err != nil {
		return nil, fmt.Errorf("invalid shipping address: %w", models.ErrValidationFailed)
	}

	if !s.cart.CanCheckout() {
		return nil, fmt.Errorf("cart is not checkout-eligible: %w", models.ErrValidationFailed)
	}

	cart := s.cart.Current()
	order := &models.Order{
		ID:              uuid.New().String(),
		BuyerID:         identity.ID,
		Items:           snapshotItems(cart.Items),
		Status:          models.OrderPending,
		TotalAmount:     cart.ComputeTotal(),
		ShippingAddress: address,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publishEvent("order.created", order)

	if _, err := s.cart.Clear(ctx); err != nil {
		// Non-fatal: the order exists, confirmation must proceed.
		log.Printf("Warning: failed to clear cart after order %s: %v", order.ID, err)
	}

	return order, nil
}

// Transition applies one lifecycle edge to an order. It rejects illegal
// edges with models.ErrInvalidTransition and legal edges the acting
// role may not take with models.ErrForbidden, before any remote call.
// The returned order replaces the caller's copy; an error wrapping
// models.ErrNotFound from the store means the caller's collection is
// stale and must be reloaded.
func (s *OrderService) Transition(ctx context.Context, order *models.Order, target models.OrderStatus, actingRole models.Role) (*models.Order, error) {
	if !isSuccessor(order.Status, target) {
		return nil, fmt.Errorf("%s -> %s: %w", order.Status, target, models.ErrInvalidTransition)
	}
	if !roleMayTransition(actingRole, order.Status, target) {
		return nil, fmt.Errorf("role %s may not apply %s -> %s: %w", actingRole, order.Status, target, models.ErrForbidden)
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, target)
	if err != nil {
		return nil, err
	}

	s.publishEvent("order.status_updated", updated)
	return updated, nil
}

// Cancel is the buyer-facing convenience wrapper. Only a pending order
// may be cancelled this way; the UI is expected to ask for explicit
// confirmation before calling.
func (s *OrderService) Cancel(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.Status != models.OrderPending {
		return nil, fmt.Errorf("only pending orders can be cancelled, order is %s: %w", order.Status, models.ErrInvalidTransition)
	}
	return s.Transition(ctx, order, models.OrderCancelled, models.RoleBuyer)
}

// ListOrders returns the role-scoped order collection for an identity,
// newest first.
func (s *OrderService) ListOrders(ctx context.Context, identity models.Identity) ([]models.Order, error) {
	var (
		orders []models.Order
		err    error
	)
	switch identity.Role {
	case models.RoleSeller:
		orders, err = s.orders.ListBySeller(ctx, identity.ID)
	default:
		orders, err = s.orders.ListByBuyer(ctx, identity.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// GetOrder retrieves a single order.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) publishEvent(kind string, order *models.Order) {
	if s.mqClient == nil {
		return
	}
	event := rabbitmq.OrderEvent{
		Kind:    kind,
		OrderID: order.ID,
		BuyerID: order.BuyerID,
		Status:  string(order.Status),
		Total:   order.TotalAmount.String(),
	}
	if err := s.mqClient.PublishOrderEvent(event); err != nil {
		log.Printf("Warning: failed to publish %s event for order %s: %v", kind, order.ID, err)
	}
}

func isSuccessor(from, to models.OrderStatus) bool {
	for _, next := range nextStatuses[from] {
		if next == to {
			return true
		}
	}
	return false
}

// roleMayTransition gates lifecycle edges by role: sellers may take
// every edge, buyers only the pending cancellation.
func roleMayTransition(role models.Role, from, to models.OrderStatus) bool {
	switch role {
	case models.RoleSeller:
		return true
	case models.RoleBuyer:
		return from == models.OrderPending && to == models.OrderCancelled
	default:
		return false
	}
}

func snapshotItems(items []models.CartLineItem) []models.OrderLineItem {
	out := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderLineItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SellerID:    item.SellerID,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return out
}

// ComputeBuyerStats aggregates a buyer's order collection. Cancelled
// orders count toward TotalOrders but are excluded from TotalSpent.
func ComputeBuyerStats(orders []models.Order) models.BuyerOrderStats {
	stats := models.BuyerOrderStats{TotalOrders: len(orders), TotalSpent: decimal.Zero}
	for _, order := range orders {
		switch order.Status {
		case models.OrderDelivered:
			stats.Delivered++
		case models.OrderPending, models.OrderReadyForDelivery, models.OrderShipped:
			stats.InProgress++
		}
		if order.Status != models.OrderCancelled {
			stats.TotalSpent = stats.TotalSpent.Add(order.TotalAmount)
		}
	}
	return stats
}

// ComputeSellerStats aggregates a seller's order collection. Cancelled
// orders count toward TotalOrders but are excluded from TotalRevenue.
func ComputeSellerStats(orders []models.Order) models.SellerOrderStats {
	stats := models.SellerOrderStats{TotalOrders: len(orders), TotalRevenue: decimal.Zero}
	for _, order := range orders {
		switch order.Status {
		case models.OrderPending, models.OrderReadyForDelivery:
			stats.Pending++
		case models.OrderShipped:
			stats.Shipped++
		case models.OrderDelivered:
			stats.Delivered++
		}
		if order.Status != models.OrderCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(order.TotalAmount)
		}
	}
	return stats
}

// OrderNumber derives the display id: ORD-{year}-{last 3 chars of the
// id, uppercased}. The current year is used when CreatedAt is unset; a
// missing id yields an empty string.
func OrderNumber(order models.Order) string {
	if order.ID == "" {
		return ""
	}
	year := order.CreatedAt.Year()
	if order.CreatedAt.IsZero() {
		year = time.Now().Year()
	}
	suffix := order.ID
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}
	return fmt.Sprintf("ORD-%d-%s", year, strings.ToUpper(suffix))
}
