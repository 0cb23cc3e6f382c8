package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

// failingProductRepo errors on every lookup, simulating a catalog outage.
type failingProductRepo struct{}

func (failingProductRepo) GetAll(ctx context.Context) ([]models.Product, error) {
	return nil, fmt.Errorf("catalog unavailable: %w", models.ErrTransient)
}

func (failingProductRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return nil, fmt.Errorf("catalog unavailable: %w", models.ErrTransient)
}

func (failingProductRepo) Create(ctx context.Context, product *models.Product) error { return nil }
func (failingProductRepo) Update(ctx context.Context, product *models.Product) error { return nil }
func (failingProductRepo) Delete(ctx context.Context, id string) error               { return nil }

func seedCatalog(t *testing.T, repo *repositories.MockProductRepository, products ...models.Product) {
	t.Helper()
	for i := range products {
		assert.NoError(t, repo.Create(context.Background(), &products[i]))
	}
}

func line(productID, name string, quantity int) models.CartLineItem {
	return models.CartLineItem{
		ProductID:   productID,
		ProductName: name,
		UnitPrice:   decimal.NewFromInt(10),
		Quantity:    quantity,
	}
}

func TestStockValidator_EmptyCartYieldsEmptyReport(t *testing.T) {
	validator := services.NewStockValidator(failingProductRepo{})

	report, err := validator.Validate(context.Background(), nil)
	assert.NoError(t, err)
	assert.False(t, report.HasIssues())
}

func TestStockValidator_ClassifiesEveryIssueKind(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	seedCatalog(t, repo,
		models.Product{ID: "p-plenty", Name: "Plenty", Stock: 10},
		models.Product{ID: "p-low", Name: "Low", Stock: 1},
		models.Product{ID: "p-gone", Name: "Gone", Stock: 0},
	)

	validator := services.NewStockValidator(repo)
	report, err := validator.Validate(context.Background(), []models.CartLineItem{
		line("p-plenty", "Plenty", 3),
		line("p-low", "Low", 2),
		line("p-gone", "Gone", 1),
		line("p-missing", "Missing", 1),
	})
	assert.NoError(t, err)
	assert.True(t, report.HasIssues())
	assert.Len(t, report.Issues, 3)

	_, ok := report.Issue("p-plenty")
	assert.False(t, ok, "sufficient stock must not produce an issue")

	low, ok := report.Issue("p-low")
	assert.True(t, ok)
	assert.Equal(t, models.IssueInsufficientStock, low.Kind)
	assert.Equal(t, 1, low.CurrentStock)
	assert.Equal(t, 2, low.RequestedQuantity)

	gone, ok := report.Issue("p-gone")
	assert.True(t, ok)
	assert.Equal(t, models.IssueOutOfStock, gone.Kind)

	missing, ok := report.Issue("p-missing")
	assert.True(t, ok)
	assert.Equal(t, models.IssueNotFound, missing.Kind)
	assert.Equal(t, 0, missing.CurrentStock)
}

func TestStockValidator_ExactStockIsNotAnIssue(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	seedCatalog(t, repo, models.Product{ID: "p-exact", Name: "Exact", Stock: 2})

	validator := services.NewStockValidator(repo)
	report, err := validator.Validate(context.Background(), []models.CartLineItem{
		line("p-exact", "Exact", 2),
	})
	assert.NoError(t, err)
	assert.False(t, report.HasIssues())
}

func TestStockValidator_FetchFailureFailsWholePass(t *testing.T) {
	validator := services.NewStockValidator(failingProductRepo{})

	report, err := validator.Validate(context.Background(), []models.CartLineItem{
		line("p-1", "One", 1),
		line("p-2", "Two", 1),
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransient)
	assert.Nil(t, report, "a failed pass must not produce a partial report")
}

func TestStockValidator_DoesNotMutateInput(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	seedCatalog(t, repo, models.Product{ID: "p-low", Name: "Low", Stock: 1})

	items := []models.CartLineItem{line("p-low", "Low", 5)}
	validator := services.NewStockValidator(repo)

	_, err := validator.Validate(context.Background(), items)
	assert.NoError(t, err)
	assert.Equal(t, 5, items[0].Quantity, "validation reads the cart, never changes it")
}
