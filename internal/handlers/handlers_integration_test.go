package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

var dbSeq atomic.Int64

// setupApp builds the full stack on an in-memory SQLite database: GORM
// stores, session store, cart engine, order service, guards, handlers.
// Each call gets its own named shared-cache memory database so tests
// stay isolated while GORM's connection pool sees consistent data.
func setupApp() (*fiber.App, error) {
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:handlers%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}
	if err := repositories.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	cartStore := repositories.NewGORMCartStore(db)
	orderStore := repositories.NewGORMOrderStore(db)

	authService := services.NewAuthService(userRepo, jwtSecret)
	sessionStore := services.NewSessionStore(authService, services.NewMemorySessionStorage(), time.Second)
	stockValidator := services.NewStockValidator(productRepo)
	cartEngine := services.NewCartEngine(cartStore, stockValidator, sessionStore)
	orderService := services.NewOrderService(orderStore, cartEngine, sessionStore, nil) // nil for RabbitMQ client
	accessGuard := services.NewAccessGuard(sessionStore)

	sessionStore.Bootstrap()

	authHandler := handlers.NewAuthHandler(authService, sessionStore)
	cartHandler := handlers.NewCartHandler(cartEngine)
	orderHandler := handlers.NewOrderHandler(orderService, sessionStore)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(accessGuard))
	orderHandler.RegisterRoutes(protected)

	buyerArea := protected.Group("", middleware.RoleRequired(accessGuard, models.RoleBuyer))
	cartHandler.RegisterRoutes(buyerArea)

	seedProductsForTest(productRepo)

	return app, nil
}

// seedProductsForTest populates the catalog with fixed IDs so tests can
// address products directly.
func seedProductsForTest(repo repositories.ProductRepository) {
	products := []models.Product{
		{ID: "p-lipstick", Name: "Velvet Lipstick", Price: decimal.NewFromInt(10), Stock: 1, SellerID: "seller-1"},
		{ID: "p-mascara", Name: "Lash Mascara", Price: decimal.NewFromInt(20), Stock: 4, SellerID: "seller-1"},
	}
	for i := range products {
		if err := repo.Create(context.Background(), &products[i]); err != nil {
			log.Printf("Failed to seed product %s: %v", products[i].Name, err)
		}
	}
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func registerAndLogin(t *testing.T, app *fiber.App, name, email string, role models.Role) {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": "password123",
		"role":     string(role),
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

var checkoutAddress = map[string]string{
	"full_name": "Ann Buyer",
	"address":   "12 Harbor Lane",
	"city":      "Portsmouth",
	"phone":     "555-010-2030",
}

func TestUnauthenticatedAccessRedirectsToLogin(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/cart/", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestSellerIsRedirectedAwayFromCart(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)
	registerAndLogin(t, app, "Sal Seller", "sal@example.com", models.RoleSeller)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/cart/", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSessionEndpoint(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)

	var state struct {
		Ready    bool             `json:"ready"`
		LoggedIn bool             `json:"logged_in"`
		Identity *models.Identity `json:"identity"`
	}
	resp := doJSON(t, app, http.MethodGet, "/api/v1/auth/session", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &state)
	assert.True(t, state.Ready)
	assert.False(t, state.LoggedIn)
	assert.Nil(t, state.Identity)

	registerAndLogin(t, app, "Ann Buyer", "ann@example.com", models.RoleBuyer)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/auth/session", nil)
	decodeBody(t, resp, &state)
	assert.True(t, state.LoggedIn)
	assert.Equal(t, "ann@example.com", state.Identity.Email)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/v1/auth/session", nil)
	decodeBody(t, resp, &state)
	assert.False(t, state.LoggedIn)
}

// TestCheckoutScenario walks the whole flow: a stock conflict surfaces
// during validation, blocks checkout, is remediated by clamping the
// line, and the order is finally placed from the validated cart.
func TestCheckoutScenario(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)
	registerAndLogin(t, app, "Ann Buyer", "ann@example.com", models.RoleBuyer)

	// Two units of the lipstick, but only one is in stock.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id":   "p-lipstick",
		"product_name": "Velvet Lipstick",
		"seller_id":    "seller-1",
		"unit_price":   "10",
		"quantity":     2,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id":   "p-mascara",
		"product_name": "Lash Mascara",
		"seller_id":    "seller-1",
		"unit_price":   "20",
		"quantity":     1,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var verdict struct {
		Issues      map[string]models.ValidationIssue `json:"issues"`
		HasIssues   bool                              `json:"has_issues"`
		CanCheckout bool                              `json:"can_checkout"`
	}
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/validate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &verdict)
	assert.True(t, verdict.HasIssues)
	assert.False(t, verdict.CanCheckout)
	assert.Equal(t, models.IssueInsufficientStock, verdict.Issues["p-lipstick"].Kind)
	assert.Equal(t, 1, verdict.Issues["p-lipstick"].CurrentStock)

	// Checkout is refused while the conflict stands.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/orders/", checkoutAddress)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Accept the clamp, then revalidate.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/cart/items/p-lipstick/adjust", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/validate", nil)
	decodeBody(t, resp, &verdict)
	assert.False(t, verdict.HasIssues)
	assert.True(t, verdict.CanCheckout)

	var order models.Order
	resp = doJSON(t, app, http.MethodPost, "/api/v1/orders/", checkoutAddress)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &order)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(30)), "got %s", order.TotalAmount)
	assert.Len(t, order.Items, 2)

	// The cart is cleared by the successful checkout.
	var cart models.Cart
	resp = doJSON(t, app, http.MethodGet, "/api/v1/cart/", nil)
	decodeBody(t, resp, &cart)
	assert.Empty(t, cart.Items)

	var orders []models.Order
	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &orders)
	assert.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func placeOrder(t *testing.T, app *fiber.App) models.Order {
	t.Helper()
	return placeOrderFor(t, app, "seller-1")
}

func placeOrderFor(t *testing.T, app *fiber.App, sellerID string) models.Order {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id":   "p-mascara",
		"product_name": "Lash Mascara",
		"seller_id":    sellerID,
		"unit_price":   "20",
		"quantity":     1,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/validate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var order models.Order
	resp = doJSON(t, app, http.MethodPost, "/api/v1/orders/", checkoutAddress)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &order)
	return order
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)
	registerAndLogin(t, app, "Ann Buyer", "ann@example.com", models.RoleBuyer)
	order := placeOrder(t, app)

	// Buyers may not push an order forward.
	resp := doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status",
		map[string]string{"status": "READY_FOR_DELIVERY"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The seller walks it through the lifecycle.
	registerAndLogin(t, app, "Sal Seller", "sal@example.com", models.RoleSeller)
	for _, status := range []string{"READY_FOR_DELIVERY", "SHIPPED", "DELIVERED"} {
		resp = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status",
			map[string]string{"status": status})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// Delivered is terminal, even for the seller.
	resp = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status",
		map[string]string{"status": "CANCELLED"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status",
		map[string]string{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPatch, "/api/v1/orders/ghost/status",
		map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBuyerCancelOverHTTP(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)
	registerAndLogin(t, app, "Ann Buyer", "ann@example.com", models.RoleBuyer)
	order := placeOrder(t, app)

	var cancelled models.Order
	resp := doJSON(t, app, http.MethodPut, "/api/v1/orders/"+order.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &cancelled)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	// Cancelling twice conflicts: the order is no longer pending.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/orders/"+order.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStatsOverHTTP(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)

	// Register the seller first so the order lines can carry their real
	// account id.
	var seller models.Identity
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Sal Seller",
		"email":    "sal@example.com",
		"password": "password123",
		"role":     string(models.RoleSeller),
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &seller)

	registerAndLogin(t, app, "Ann Buyer", "ann@example.com", models.RoleBuyer)
	order := placeOrderFor(t, app, seller.ID)

	var buyerStats models.BuyerOrderStats
	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/stats", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &buyerStats)
	assert.Equal(t, 1, buyerStats.TotalOrders)
	assert.Equal(t, 1, buyerStats.InProgress)
	assert.True(t, buyerStats.TotalSpent.Equal(decimal.NewFromInt(20)))

	// A cancelled order still counts toward the total, never the spend.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/orders/"+order.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/stats", nil)
	decodeBody(t, resp, &buyerStats)
	assert.Equal(t, 1, buyerStats.TotalOrders)
	assert.Equal(t, 0, buyerStats.InProgress)
	assert.True(t, buyerStats.TotalSpent.Equal(decimal.Zero))

	// The seller sees the same collection through their aggregate.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "sal@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var sellerStats models.SellerOrderStats
	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/stats", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &sellerStats)
	assert.Equal(t, 1, sellerStats.TotalOrders)
	assert.True(t, sellerStats.TotalRevenue.Equal(decimal.Zero))
}

func TestProfileUpdateOverHTTP(t *testing.T) {
	app, err := setupApp()
	assert.NoError(t, err)
	registerAndLogin(t, app, "Ann Buyer", "ann@example.com", models.RoleBuyer)

	var identity models.Identity
	resp := doJSON(t, app, http.MethodPatch, "/api/v1/auth/profile", map[string]string{
		"avatar_ref": "avatars/ann.png",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &identity)
	assert.Equal(t, "Ann Buyer", identity.Name, "untouched fields survive a partial update")
	assert.Equal(t, "avatars/ann.png", identity.AvatarRef)
}
