package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/models"
	"storefront/internal/services"
)

// OrderHandler exposes order placement, the lifecycle transitions, and
// role-scoped statistics over HTTP.
type OrderHandler struct {
	service *services.OrderService
	session *services.SessionStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, session *services.SessionStore) *OrderHandler {
	return &OrderHandler{
		service: service,
		session: session,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Get("/stats", h.HandleStats)
	orderRoutes.Patch("/:id/status", h.HandleUpdateStatus)
	orderRoutes.Put("/:id/cancel", h.HandleCancel)
}

// HandleCreateOrder places an order from the current cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var address models.ShippingAddress
	if err := c.BodyParser(&address); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	order, err := h.service.CreateFromCart(c.Context(), address)
	if err != nil {
		return orderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleListOrders returns the role-scoped order collection.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	identity := h.session.Identity()
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Login required",
		})
	}

	orders, err := h.service.ListOrders(c.Context(), *identity)
	if err != nil {
		log.Printf("Error listing orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
		})
	}
	return c.JSON(orders)
}

// HandleStats returns the role-appropriate aggregate view.
func (h *OrderHandler) HandleStats(c *fiber.Ctx) error {
	identity := h.session.Identity()
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Login required",
		})
	}

	orders, err := h.service.ListOrders(c.Context(), *identity)
	if err != nil {
		log.Printf("Error listing orders for stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
		})
	}

	if identity.Role == models.RoleSeller {
		return c.JSON(services.ComputeSellerStats(orders))
	}
	return c.JSON(services.ComputeBuyerStats(orders))
}

// HandleUpdateStatus applies one lifecycle transition, acting as the
// session's role.
func (h *OrderHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	identity := h.session.Identity()
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Login required",
		})
	}

	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || !body.Status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order status",
		})
	}

	order, err := h.service.GetOrder(c.Context(), c.Params("id"))
	if err != nil {
		return orderError(c, err)
	}

	updated, err := h.service.Transition(c.Context(), order, body.Status, identity.Role)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(updated)
}

// HandleCancel cancels a pending order on behalf of the buyer.
func (h *OrderHandler) HandleCancel(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.Context(), c.Params("id"))
	if err != nil {
		return orderError(c, err)
	}

	updated, err := h.service.Cancel(c.Context(), order)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(updated)
}

func orderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Not allowed",
			"error":   err.Error(),
		})
	case errors.Is(err, models.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Illegal status transition",
			"error":   err.Error(),
		})
	case errors.Is(err, models.ErrNotFound):
		// Stale caller state: the client should reload its collection.
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Order not found, reload your orders",
		})
	case errors.Is(err, models.ErrValidationFailed):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Checkout blocked",
			"error":   err.Error(),
		})
	default:
		log.Printf("Order operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Order operation failed",
		})
	}
}
