package cart

import (
	"context"
	"errors"
	"iter"
	"slices"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/pricing"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// Catalog looks products up by id.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
}

// Cart maps product ids to requested quantities for one session.
// Every mutation marks the cart dirty so the session layer persists it.
type Cart struct {
	SessionID string        `json:"session_id"`
	Lines     map[int64]int `json:"lines"`
	UpdatedAt time.Time     `json:"updated_at"`

	dirty bool
}

// New returns an empty cart owned by sessionID.
func New(sessionID string) *Cart {
	return &Cart{
		SessionID: sessionID,
		Lines:     make(map[int64]int),
	}
}

func (c *Cart) touch() {
	if c.Lines == nil {
		c.Lines = make(map[int64]int)
	}
	c.UpdatedAt = time.Now().UTC()
	c.dirty = true
}

// Add increases the quantity of productID by qty.
func (c *Cart) Add(productID int64, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	c.touch()
	c.Lines[productID] += qty
	return nil
}

// Update sets the quantity of productID. A quantity of zero or less
// removes the line.
func (c *Cart) Update(productID int64, qty int) {
	c.touch()
	if qty <= 0 {
		delete(c.Lines, productID)
		return
	}
	c.Lines[productID] = qty
}

// Remove drops productID from the cart.
func (c *Cart) Remove(productID int64) {
	c.touch()
	delete(c.Lines, productID)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.touch()
	clear(c.Lines)
}

// Quantity returns the stored quantity for productID.
func (c *Cart) Quantity(productID int64) int {
	return c.Lines[productID]
}

// Len is the number of distinct stored lines, resolved or not.
func (c *Cart) Len() int {
	return len(c.Lines)
}

// IsEmpty reports whether no lines are stored.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ProductIDs returns the stored product ids in ascending order.
func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Lines))
	for id := range c.Lines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Dirty reports whether the cart changed since it was loaded or saved.
func (c *Cart) Dirty() bool {
	return c.dirty
}

// MarkClean is called by the session layer after persisting the cart.
func (c *Cart) MarkClean() {
	c.dirty = false
}

// Items yields the stored lines joined against catalog, in product id
// order. Lines whose product is missing or inactive are skipped but stay
// stored. Each range over the sequence queries the catalog again. A lookup
// failure other than not-found is yielded once and ends the sequence.
func (c *Cart) Items(ctx context.Context, catalog Catalog) iter.Seq2[models.LineItem, error] {
	return func(yield func(models.LineItem, error) bool) {
		for _, id := range c.ProductIDs() {
			qty := c.Lines[id]
			product, err := catalog.GetByID(ctx, id)
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			if err != nil {
				yield(models.LineItem{}, err)
				return
			}
			if !product.IsActive {
				continue
			}
			if !yield(models.LineItem{Product: *product, Quantity: qty}, nil) {
				return
			}
		}
	}
}

// Resolve collects Items into a slice.
func (c *Cart) Resolve(ctx context.Context, catalog Catalog) ([]models.LineItem, error) {
	lines := make([]models.LineItem, 0, len(c.Lines))
	for line, err := range c.Items(ctx, catalog) {
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Subtotal sums unit price times quantity over the resolved lines.
func (c *Cart) Subtotal(ctx context.Context, catalog Catalog) (decimal.Decimal, error) {
	lines, err := c.Resolve(ctx, catalog)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.Subtotal(lines), nil
}
