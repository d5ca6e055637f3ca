// internal/domain/product/catalog.go
package product

import (
	"context"
	"errors"
	"strconv"

	"github.com/maloune/storefront/internal/domain/cart"
)

// CatalogStore is the lookup side of Store
type CatalogStore interface {
	FindActiveProduct(ctx context.Context, id uint) (*Product, error)
}

// GormCatalog resolves cart products against the product table
type GormCatalog struct {
	store      CatalogStore
	maxPerLine int
}

// NewCatalog creates a catalog for the cart service
func NewCatalog(store CatalogStore, maxPerLine int) *GormCatalog {
	if maxPerLine <= 0 {
		maxPerLine = cart.DefaultMaxQuantity
	}
	return &GormCatalog{store: store, maxPerLine: maxPerLine}
}

// LookupProduct returns the current price and quantity bound of a product.
// Variants are not modelled, so variantID is carried through unchanged.
func (c *GormCatalog) LookupProduct(ctx context.Context, productID, variantID string) (*cart.CatalogEntry, error) {
	id, err := strconv.ParseUint(productID, 10, 64)
	if err != nil || id == 0 {
		return nil, cart.ErrProductUnavailable
	}

	product, err := c.store.FindActiveProduct(ctx, uint(id))
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, cart.ErrProductUnavailable
		}
		return nil, err
	}

	maxQuantity := c.maxPerLine
	if product.StockQuantity < maxQuantity {
		maxQuantity = product.StockQuantity
	}
	if maxQuantity < 1 {
		return nil, cart.ErrProductUnavailable
	}

	// "7" and "007" are the same product and must share one cart line
	entry := &cart.CatalogEntry{
		ProductID:   strconv.FormatUint(id, 10),
		VariantID:   variantID,
		Name:        product.Name,
		Price:       product.Price,
		Image:       product.Image,
		MaxQuantity: maxQuantity,
	}
	if product.ComparePrice.GreaterThan(product.Price) {
		compare := product.ComparePrice
		entry.ComparePrice = &compare
	}

	return entry, nil
}
