// internal/domain/cart/entity.go
package cart

import (
	"github.com/maloune/storefront/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultMaxQuantity caps a line when the catalog gives no tighter bound
const DefaultMaxQuantity = 10

// CartItem is one product line in a shopper's cart
type CartItem struct {
	ID           string           `json:"id"`
	ProductID    string           `json:"product_id"`
	VariantID    string           `json:"variant_id,omitempty"`
	Name         string           `json:"name"`
	Price        decimal.Decimal  `json:"price"`
	ComparePrice *decimal.Decimal `json:"compare_price,omitempty"`
	Image        string           `json:"image"`
	Quantity     int              `json:"quantity"`
	MaxQuantity  int              `json:"max_quantity"`
}

// ItemKey builds the stable line id for a product and optional variant
func ItemKey(productID, variantID string) string {
	if variantID == "" {
		return productID
	}
	return productID + ":" + variantID
}

// LineTotal returns price * quantity for this line
func (i CartItem) LineTotal() decimal.Decimal {
	return money.LineTotal(i.Price, i.Quantity)
}

// DiscountPercent returns the saving shown against the compare price
func (i CartItem) DiscountPercent() int {
	if i.ComparePrice == nil {
		return 0
	}
	return money.DiscountPercent(*i.ComparePrice, i.Price)
}

// sameLine reports whether other should be merged into this line
func (i CartItem) sameLine(other CartItem) bool {
	if i.ID == other.ID {
		return true
	}
	return i.ProductID == other.ProductID && i.VariantID == other.VariantID
}

// Snapshot is an immutable view of a cart with derived totals
type Snapshot struct {
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// IsEmpty reports whether the snapshot holds no lines
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// NewSnapshot derives totals from a list of lines
func NewSnapshot(items []CartItem) Snapshot {
	snap := Snapshot{
		Items:      make([]CartItem, len(items)),
		TotalPrice: decimal.Zero,
	}
	copy(snap.Items, items)

	for _, item := range items {
		snap.TotalItems += item.Quantity
		snap.TotalPrice = snap.TotalPrice.Add(item.LineTotal())
	}

	return snap
}
