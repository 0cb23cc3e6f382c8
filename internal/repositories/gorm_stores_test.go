package repositories_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache memory database: every pooled connection
	// must see the same data, but each test gets its own database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	assert.NoError(t, repositories.AutoMigrate(db))
	return db
}

func TestGORMProductRepository_CRUD(t *testing.T) {
	repo := repositories.NewGORMProductRepository(openTestDB(t))
	ctx := context.Background()

	product := &models.Product{
		Name:     "Velvet Lipstick",
		Price:    decimal.RequireFromString("18.50"),
		Stock:    5,
		SellerID: "seller-1",
	}
	assert.NoError(t, repo.Create(ctx, product))
	assert.NotEmpty(t, product.ID)

	fetched, err := repo.GetByID(ctx, product.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Velvet Lipstick", fetched.Name)
	assert.True(t, fetched.Price.Equal(decimal.RequireFromString("18.50")))

	fetched.Stock = 2
	assert.NoError(t, repo.Update(ctx, fetched))
	fetched, err = repo.GetByID(ctx, product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, fetched.Stock)

	all, err := repo.GetAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 1)

	assert.NoError(t, repo.Delete(ctx, product.ID))
	_, err = repo.GetByID(ctx, product.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGORMProductRepository_MissingProduct(t *testing.T) {
	repo := repositories.NewGORMProductRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = repo.Update(ctx, &models.Product{ID: "ghost", Name: "Ghost"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = repo.Delete(ctx, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGORMCartStore_AddMergesExistingLine(t *testing.T) {
	store := repositories.NewGORMCartStore(openTestDB(t))
	ctx := context.Background()

	item := models.CartLineItem{
		ProductID: "p-a", ProductName: "Aaa",
		UnitPrice: decimal.NewFromInt(10), Quantity: 2,
	}
	_, err := store.AddItem(ctx, "user-1", item)
	assert.NoError(t, err)

	item.Quantity = 3
	cart, err := store.AddItem(ctx, "user-1", item)
	assert.NoError(t, err)

	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(50)))
}

func TestGORMCartStore_CartsAreIsolatedByOwner(t *testing.T) {
	store := repositories.NewGORMCartStore(openTestDB(t))
	ctx := context.Background()

	item := models.CartLineItem{ProductID: "p-a", UnitPrice: decimal.NewFromInt(10), Quantity: 1}
	_, err := store.AddItem(ctx, "user-1", item)
	assert.NoError(t, err)
	_, err = store.AddItem(ctx, "user-2", item)
	assert.NoError(t, err)

	cart, err := store.ClearCart(ctx, "user-1")
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)

	other, err := store.GetCart(ctx, "user-2")
	assert.NoError(t, err)
	assert.Len(t, other.Items, 1)
}

func TestGORMCartStore_SetQuantityOnAbsentLine(t *testing.T) {
	store := repositories.NewGORMCartStore(openTestDB(t))

	_, err := store.SetItemQuantity(context.Background(), "user-1", "p-ghost", 3)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGORMCartStore_RemoveIsIdempotent(t *testing.T) {
	store := repositories.NewGORMCartStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.AddItem(ctx, "user-1", models.CartLineItem{
		ProductID: "p-a", UnitPrice: decimal.NewFromInt(10), Quantity: 1,
	})
	assert.NoError(t, err)

	cart, err := store.RemoveItem(ctx, "user-1", "p-a")
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)

	cart, err = store.RemoveItem(ctx, "user-1", "p-a")
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestGORMOrderStore_CreateAndGetRoundTrip(t *testing.T) {
	store := repositories.NewGORMOrderStore(openTestDB(t))
	ctx := context.Background()

	order := &models.Order{
		BuyerID: "user-1",
		Status:  models.OrderPending,
		Items: []models.OrderLineItem{
			{ProductID: "p-a", ProductName: "Aaa", SellerID: "seller-1", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
			{ProductID: "p-b", ProductName: "Bbb", SellerID: "seller-2", UnitPrice: decimal.NewFromInt(20), Quantity: 1},
		},
		TotalAmount: decimal.NewFromInt(40),
		ShippingAddress: models.ShippingAddress{
			FullName: "Ann Buyer", Address: "12 Harbor Lane", City: "Portsmouth", Phone: "555-010-2030",
		},
	}
	assert.NoError(t, store.Create(ctx, order))
	assert.NotEmpty(t, order.ID)

	fetched, err := store.GetByID(ctx, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderPending, fetched.Status)
	assert.Len(t, fetched.Items, 2)
	assert.True(t, fetched.TotalAmount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "Portsmouth", fetched.ShippingAddress.City)
}

func TestGORMOrderStore_ListBySellerMatchesAnyLine(t *testing.T) {
	store := repositories.NewGORMOrderStore(openTestDB(t))
	ctx := context.Background()

	mixed := &models.Order{
		BuyerID: "user-1", Status: models.OrderPending,
		Items: []models.OrderLineItem{
			{ProductID: "p-a", SellerID: "seller-1", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
			{ProductID: "p-b", SellerID: "seller-2", UnitPrice: decimal.NewFromInt(20), Quantity: 1},
		},
		TotalAmount: decimal.NewFromInt(30),
	}
	foreign := &models.Order{
		BuyerID: "user-2", Status: models.OrderPending,
		Items: []models.OrderLineItem{
			{ProductID: "p-c", SellerID: "seller-2", UnitPrice: decimal.NewFromInt(5), Quantity: 1},
		},
		TotalAmount: decimal.NewFromInt(5),
	}
	assert.NoError(t, store.Create(ctx, mixed))
	assert.NoError(t, store.Create(ctx, foreign))

	orders, err := store.ListBySeller(ctx, "seller-1")
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, mixed.ID, orders[0].ID)

	orders, err = store.ListBySeller(ctx, "seller-2")
	assert.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = store.ListByBuyer(ctx, "user-1")
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestGORMOrderStore_UpdateStatus(t *testing.T) {
	store := repositories.NewGORMOrderStore(openTestDB(t))
	ctx := context.Background()

	order := &models.Order{BuyerID: "user-1", Status: models.OrderPending, TotalAmount: decimal.NewFromInt(10)}
	assert.NoError(t, store.Create(ctx, order))

	updated, err := store.UpdateStatus(ctx, order.ID, models.OrderShipped)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderShipped, updated.Status)

	_, err = store.UpdateStatus(ctx, "ghost", models.OrderShipped)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGORMOrderStore_DeleteOnlyTerminalOrders(t *testing.T) {
	store := repositories.NewGORMOrderStore(openTestDB(t))
	ctx := context.Background()

	order := &models.Order{BuyerID: "user-1", Status: models.OrderPending, TotalAmount: decimal.NewFromInt(10)}
	assert.NoError(t, store.Create(ctx, order))

	err := store.Delete(ctx, order.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = store.UpdateStatus(ctx, order.ID, models.OrderCancelled)
	assert.NoError(t, err)
	assert.NoError(t, store.Delete(ctx, order.ID))

	_, err = store.GetByID(ctx, order.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
