package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CartEngine owns the canonical cart. All mutations go through the
// remote cart store; the local snapshot is only ever replaced by a
// confirmed remote response, so a failed mutation leaves it untouched.
// Subscribers receive immutable snapshots in mutation order.
type CartEngine struct {
	store     repositories.CartStore
	validator *StockValidator
	session   *SessionStore

	// mu serializes mutations end to end, including subscriber
	// notification, which is what gives the ordering guarantee.
	// Subscriber callbacks must not call back into the engine.
	mu       sync.Mutex
	snapshot models.Cart
	gen      uint64 // bumped on every snapshot replacement
	report   *models.ValidationReport // nil means not validated since last change
	subs     map[int]func(models.Cart)
	nextSub  int
}

// NewCartEngine creates a new CartEngine.
func NewCartEngine(store repositories.CartStore, validator *StockValidator, session *SessionStore) *CartEngine {
	return &CartEngine{
		store:     store,
		validator: validator,
		session:   session,
		subs:      make(map[int]func(models.Cart)),
	}
}

// Current returns the last synchronized snapshot.
func (e *CartEngine) Current() models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot.Clone()
}

// ItemCount returns the unit count of the current snapshot.
func (e *CartEngine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot.ItemCount()
}

// Subscribe registers a cart observer, invoked with a snapshot copy on
// every successful mutation or load. The returned function removes the
// subscription.
func (e *CartEngine) Subscribe(fn func(models.Cart)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Load fetches the full cart for the current session. Failure is
// silent to the UI: the cart is left empty and the error only logged.
func (e *CartEngine) Load(ctx context.Context) {
	ownerID, err := e.ownerID()
	if err != nil {
		log.Printf("Cart load skipped: %v", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cart, err := e.store.GetCart(ctx, ownerID)
	if err != nil {
		log.Printf("Failed to load cart for %s, leaving cart empty: %v", ownerID, err)
		return
	}
	e.replaceLocked(cart)
}

// Add appends an item or, when the product is already in the cart,
// increases that line's quantity. Returns the updated cart.
func (e *CartEngine) Add(ctx context.Context, item models.CartLineItem) (models.Cart, error) {
	if item.Quantity <= 0 {
		return e.Current(), fmt.Errorf("quantity must be positive, got %d", item.Quantity)
	}
	return e.mutate(ctx, func(ownerID string) (models.Cart, error) {
		return e.store.AddItem(ctx, ownerID, item)
	})
}

// SetQuantity sets an absolute quantity. A quantity of zero or less is
// defined as removal.
func (e *CartEngine) SetQuantity(ctx context.Context, productID string, quantity int) (models.Cart, error) {
	if quantity <= 0 {
		return e.Remove(ctx, productID)
	}
	return e.mutate(ctx, func(ownerID string) (models.Cart, error) {
		return e.store.SetItemQuantity(ctx, ownerID, productID, quantity)
	})
}

// Remove deletes a line. Removing an absent product is a no-op success.
func (e *CartEngine) Remove(ctx context.Context, productID string) (models.Cart, error) {
	return e.mutate(ctx, func(ownerID string) (models.Cart, error) {
		return e.store.RemoveItem(ctx, ownerID, productID)
	})
}

// Clear empties the cart locally and remotely.
func (e *CartEngine) Clear(ctx context.Context) (models.Cart, error) {
	return e.mutate(ctx, func(ownerID string) (models.Cart, error) {
		return e.store.ClearCart(ctx, ownerID)
	})
}

// Revalidate runs a fresh stock validation pass over the current
// snapshot and caches the report, which gates checkout. An empty cart
// yields an empty report without any remote calls.
func (e *CartEngine) Revalidate(ctx context.Context) (*models.ValidationReport, error) {
	e.mu.Lock()
	items := e.snapshot.Clone().Items
	gen := e.gen
	e.mu.Unlock()

	report, err := e.validator.Validate(ctx, items)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	// Only install the report if the cart did not change underneath the
	// validation pass; a stale report must never gate checkout.
	if e.gen == gen {
		e.report = report
	}
	e.mu.Unlock()
	return report, nil
}

// Report returns the validation report from the last Revalidate, or nil
// if the cart changed since.
func (e *CartEngine) Report() *models.ValidationReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report
}

// CanCheckout reports checkout eligibility: a non-empty cart, a current
// validation report with no issues, and a logged-in session. A stale or
// missing report blocks checkout until Revalidate runs again.
func (e *CartEngine) CanCheckout() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.snapshot.Items) == 0 {
		return false
	}
	if e.report == nil || e.report.HasIssues() {
		return false
	}
	return e.session.IsLoggedIn()
}

// AdjustToAvailableStock clamps a line's quantity down to the stock
// recorded by the last validation pass, the remediation offered for
// insufficient_stock issues.
func (e *CartEngine) AdjustToAvailableStock(ctx context.Context, productID string) (models.Cart, error) {
	e.mu.Lock()
	issue, ok := e.report.Issue(productID)
	e.mu.Unlock()

	if !ok || issue.Kind != models.IssueInsufficientStock {
		return e.Current(), fmt.Errorf("no insufficient stock issue for product %s: %w", productID, models.ErrNotFound)
	}
	return e.SetQuantity(ctx, productID, issue.CurrentStock)
}

// mutate runs one remote mutation under the engine lock, replaces the
// snapshot on success, and notifies subscribers. On failure the local
// snapshot stays unchanged and the error is surfaced to the caller.
func (e *CartEngine) mutate(ctx context.Context, op func(ownerID string) (models.Cart, error)) (models.Cart, error) {
	ownerID, err := e.ownerID()
	if err != nil {
		return e.Current(), err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cart, err := op(ownerID)
	if err != nil {
		return e.snapshot.Clone(), err
	}
	e.replaceLocked(cart)
	return e.snapshot.Clone(), nil
}

// replaceLocked installs a confirmed snapshot, rederives the total,
// drops the now-stale validation report, and notifies subscribers.
// Caller must hold e.mu.
func (e *CartEngine) replaceLocked(cart models.Cart) {
	cart.Total = cart.ComputeTotal()
	e.snapshot = cart
	e.gen++
	e.report = nil

	for _, fn := range e.subs {
		fn(e.snapshot.Clone())
	}
}

func (e *CartEngine) ownerID() (string, error) {
	identity := e.session.Identity()
	if identity == nil {
		return "", fmt.Errorf("no active session: %w", models.ErrForbidden)
	}
	return identity.ID, nil
}
