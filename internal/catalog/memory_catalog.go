package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_commerce/internal/cart"
	"github.com/fjod/go_commerce/internal/money"
)

// Product groups its sellable variations, nothing more. The purchasable
// unit is always a Variation.
type Product struct {
	ID    int64
	Title string
}

// Variation is a product in a particular configuration (size, colour).
// Its price history is versioned so an order can pin the price that was
// current at commit time, whatever the admin does to it later.
type Variation struct {
	ID        int64
	ProductID int64
	Title     string
}

type priceVersion struct {
	version int64
	price   money.Money
}

type variationRecord struct {
	variation Variation
	stock     int
	versions  []priceVersion // ascending by version
}

// MemoryCatalog implements Catalog with in-memory storage. All stock
// mutations happen under one mutex, which is the concurrency guard that
// keeps check-and-deduct atomic.
type MemoryCatalog struct {
	mu         sync.RWMutex
	products   map[int64]Product
	variations map[int64]*variationRecord
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products:   make(map[int64]Product),
		variations: make(map[int64]*variationRecord),
	}
}

func (c *MemoryCatalog) AddProduct(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// AddVariation registers a sellable variation at price version 1 and
// returns its Purchasable handle.
func (c *MemoryCatalog) AddVariation(v Variation, price money.Money, stock int) *Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.variations[v.ID] = &variationRecord{
		variation: v,
		stock:     stock,
		versions:  []priceVersion{{version: 1, price: price}},
	}
	return &Item{catalog: c, id: v.ID}
}

// SetPrice changes the live price, bumping the price version. Existing
// pinned versions keep resolving to their original price.
func (c *MemoryCatalog) SetPrice(productID int64, price money.Money) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, exists := c.variations[productID]
	if !exists {
		return ErrProductNotFound
	}
	next := rec.versions[len(rec.versions)-1].version + 1
	rec.versions = append(rec.versions, priceVersion{version: next, price: price})
	return nil
}

func (c *MemoryCatalog) SetStock(productID int64, stock int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, exists := c.variations[productID]
	if !exists {
		return ErrProductNotFound
	}
	rec.stock = stock
	return nil
}

func (c *MemoryCatalog) StockOf(productID int64) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, exists := c.variations[productID]
	if !exists {
		return 0, ErrProductNotFound
	}
	return rec.stock, nil
}

func (c *MemoryCatalog) UnitPriceOf(_ context.Context, productID, version int64) (money.Money, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, exists := c.variations[productID]
	if !exists {
		return money.Money{}, ErrProductNotFound
	}
	if version == LiveVersion {
		return rec.versions[len(rec.versions)-1].price, nil
	}
	for _, pv := range rec.versions {
		if pv.version == version {
			return pv.price, nil
		}
	}
	return money.Money{}, ErrVersionNotFound
}

func (c *MemoryCatalog) PinVersion(_ context.Context, productID int64) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, exists := c.variations[productID]
	if !exists {
		return 0, ErrProductNotFound
	}
	return rec.versions[len(rec.versions)-1].version, nil
}

func (c *MemoryCatalog) CanPurchase(_ context.Context, productID int64, qty int) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, exists := c.variations[productID]
	if !exists {
		return false, ErrProductNotFound
	}
	return rec.stock-qty >= 0, nil
}

func (c *MemoryCatalog) Deduct(_ context.Context, productID int64, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, exists := c.variations[productID]
	if !exists {
		return ErrProductNotFound
	}
	if rec.stock-qty < 0 {
		return ErrInsufficientStock
	}
	rec.stock -= qty
	return nil
}

func (c *MemoryCatalog) Release(_ context.Context, productID int64, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, exists := c.variations[productID]
	if !exists {
		return ErrProductNotFound
	}
	rec.stock += qty
	return nil
}

// Item is the Purchasable handle for a registered variation.
type Item struct {
	catalog *MemoryCatalog
	id      int64
}

func (i *Item) ID() int64 {
	return i.id
}

func (i *Item) UnitPrice() money.Money {
	price, err := i.catalog.UnitPriceOf(context.Background(), i.id, LiveVersion)
	if err != nil {
		return money.Money{}
	}
	return price
}

func (i *Item) CreateLine(qty int) cart.Line {
	return cart.Line{ProductID: i.id, Quantity: qty}
}

func (i *Item) InCart(ctx context.Context, store cart.Store, sessionID string) (bool, error) {
	_, err := store.GetLine(ctx, sessionID, i.id)
	if errors.Is(err, cart.ErrLineNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
