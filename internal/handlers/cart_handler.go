package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/models"
	"storefront/internal/services"
)

// CartHandler exposes the cart engine over HTTP. Every mutation is
// followed by a revalidation pass so the checkout affordance is always
// gated by fresh stock data.
type CartHandler struct {
	engine *services.CartEngine
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(engine *services.CartEngine) *CartHandler {
	return &CartHandler{
		engine: engine,
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:productId", h.HandleSetQuantity)
	cartRoutes.Put("/items/:productId/adjust", h.HandleAdjustToStock)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/validate", h.HandleValidate)
}

// HandleGetCart returns the last synchronized snapshot.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return c.JSON(h.engine.Current())
}

// HandleAddItem adds a line (or merges quantity into an existing one).
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var item models.CartLineItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	cart, err := h.engine.Add(c.Context(), item)
	if err != nil {
		return cartError(c, err)
	}
	h.revalidate(c)
	return c.JSON(cart)
}

// HandleSetQuantity sets an absolute quantity; zero or less removes the
// line.
func (h *CartHandler) HandleSetQuantity(c *fiber.Ctx) error {
	productID := c.Params("productId")
	quantity := c.QueryInt("quantity", 0)

	cart, err := h.engine.SetQuantity(c.Context(), productID, quantity)
	if err != nil {
		return cartError(c, err)
	}
	h.revalidate(c)
	return c.JSON(cart)
}

// HandleAdjustToStock clamps a line to the last reported stock.
func (h *CartHandler) HandleAdjustToStock(c *fiber.Ctx) error {
	cart, err := h.engine.AdjustToAvailableStock(c.Context(), c.Params("productId"))
	if err != nil {
		return cartError(c, err)
	}
	h.revalidate(c)
	return c.JSON(cart)
}

// HandleRemoveItem removes a line; removing an absent one succeeds.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	cart, err := h.engine.Remove(c.Context(), c.Params("productId"))
	if err != nil {
		return cartError(c, err)
	}
	h.revalidate(c)
	return c.JSON(cart)
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cart, err := h.engine.Clear(c.Context())
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(cart)
}

// HandleValidate runs a validation pass and reports checkout
// eligibility alongside the issue map.
func (h *CartHandler) HandleValidate(c *fiber.Ctx) error {
	report, err := h.engine.Revalidate(c.Context())
	if err != nil {
		log.Printf("Cart validation pass failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Could not validate cart, try again",
		})
	}
	return c.JSON(fiber.Map{
		"issues":       report.Issues,
		"has_issues":   report.HasIssues(),
		"can_checkout": h.engine.CanCheckout(),
	})
}

// revalidate refreshes the engine's cached report after a mutation.
// Failures only log: the stale-report gate already blocks checkout.
func (h *CartHandler) revalidate(c *fiber.Ctx) {
	if _, err := h.engine.Revalidate(c.Context()); err != nil {
		log.Printf("Revalidation after cart mutation failed: %v", err)
	}
}

func cartError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrForbidden):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Login required",
		})
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Not found",
			"error":   err.Error(),
		})
	default:
		log.Printf("Cart operation failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Cart operation failed",
			"error":   err.Error(),
		})
	}
}
