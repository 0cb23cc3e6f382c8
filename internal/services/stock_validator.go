package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// StockValidator classifies cart line availability against the
// authoritative product catalog.
type StockValidator struct {
	products repositories.ProductRepository
}

// NewStockValidator creates a new StockValidator.
func NewStockValidator(products repositories.ProductRepository) *StockValidator {
	return &StockValidator{
		products: products,
	}
}

// Validate fetches current stock for every line concurrently and
// returns a fresh report. The pass is atomic: if any fetch fails for a
// reason other than a vanished product, no report is produced and a
// single error is returned. Repeated calls fully replace earlier
// reports; nothing is merged.
func (v *StockValidator) Validate(ctx context.Context, items []models.CartLineItem) (*models.ValidationReport, error) {
	report := &models.ValidationReport{Issues: make(map[string]models.ValidationIssue)}
	if len(items) == 0 {
		return report, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fetchErr error
	)

	for _, item := range items {
		wg.Add(1)
		go func(item models.CartLineItem) {
			defer wg.Done()

			product, err := v.products.GetByID(ctx, item.ProductID)
			issue, failure := classify(item, product, err)

			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				if fetchErr == nil {
					fetchErr = failure
					cancel() // abandon the remaining fetches
				}
				return
			}
			if issue != nil {
				report.Issues[item.ProductID] = *issue
			}
		}(item)
	}
	wg.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("stock validation pass failed: %w", fetchErr)
	}
	return report, nil
}

// classify maps one fetch outcome onto at most one issue. A vanished
// product is an issue, not a failure of the pass.
func classify(item models.CartLineItem, product *models.Product, err error) (*models.ValidationIssue, error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return &models.ValidationIssue{
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			Kind:              models.IssueNotFound,
			CurrentStock:      0,
			RequestedQuantity: item.Quantity,
		}, nil
	case err != nil:
		return nil, err
	case product.Stock == 0:
		return &models.ValidationIssue{
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			Kind:              models.IssueOutOfStock,
			CurrentStock:      0,
			RequestedQuantity: item.Quantity,
		}, nil
	case product.Stock < item.Quantity:
		return &models.ValidationIssue{
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			Kind:              models.IssueInsufficientStock,
			CurrentStock:      product.Stock,
			RequestedQuantity: item.Quantity,
		}, nil
	default:
		return nil, nil
	}
}
