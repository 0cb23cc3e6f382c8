package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/models"
	"storefront/internal/services"
)

// AuthHandler exposes registration and the session lifecycle over HTTP.
type AuthHandler struct {
	authService *services.AuthService
	session     *services.SessionStore
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, session *services.SessionStore) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		session:     session,
	}
}

// RegisterRoutes registers the auth routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/session", h.HandleSession)
	authRoutes.Patch("/profile", h.HandleUpdateProfile)
}

// HandleRegister creates a new account.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var user models.User
	if err := c.BodyParser(&user); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if err := h.authService.Register(&user); err != nil {
		log.Printf("Registration failed for %s: %v", user.Email, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Registration failed",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(user.Identity())
}

// HandleLogin authenticates and opens the session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var credentials models.Credentials
	if err := c.BodyParser(&credentials); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	identity, err := h.session.Login(c.Context(), credentials)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}
	return c.JSON(identity)
}

// HandleLogout closes the session. This always succeeds client-side.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	h.session.Logout(c.Context())
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleSession reports session readiness and the current identity.
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ready":     h.session.IsReady(),
		"logged_in": h.session.IsLoggedIn(),
		"identity":  h.session.Identity(),
	})
}

// HandleUpdateProfile merges partial identity changes.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var update models.IdentityUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	h.session.UpdateIdentity(update)
	return c.JSON(h.session.Identity())
}
