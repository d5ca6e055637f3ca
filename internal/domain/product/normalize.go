// internal/domain/product/normalize.go
package product

import (
	"fmt"
	"strings"

	"github.com/maloune/storefront/internal/domain/supplier"
	"github.com/maloune/storefront/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultCategory is used when the supplier sends no category
const DefaultCategory = "General"

// DefaultCompareMultiplier derives the strike-through price from the sell price
var DefaultCompareMultiplier = decimal.RequireFromString("1.5")

// ValidationError describes a supplier record that cannot be imported
type ValidationError struct {
	ExternalID string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.ExternalID == "" {
		return fmt.Sprintf("invalid supplier record: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid supplier record %s: %s %s", e.ExternalID, e.Field, e.Reason)
}

// NormalizedProduct is a supplier record in the catalog's shape
type NormalizedProduct struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Image          string          `json:"image"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	SellPrice      decimal.Decimal `json:"sell_price"`
	CompareAtPrice decimal.Decimal `json:"compare_at_price"`
	Category       string          `json:"category"`
	Weight         decimal.Decimal `json:"weight"`
	ExternalID     string          `json:"external_id"`
}

// NormalizeOptions tunes defaults applied by Normalize
type NormalizeOptions struct {
	CompareMultiplier decimal.Decimal
	DefaultCategory   string
}

// Normalize maps a supplier record onto the catalog shape using margin
// as the sell-price multiplier
func Normalize(record supplier.Record, margin decimal.Decimal) (*NormalizedProduct, error) {
	return NormalizeWith(record, margin, NormalizeOptions{})
}

// NormalizeWith is Normalize with explicit defaults
func NormalizeWith(record supplier.Record, margin decimal.Decimal, opts NormalizeOptions) (*NormalizedProduct, error) {
	name := strings.TrimSpace(record.Name)
	if name == "" {
		return nil, &ValidationError{ExternalID: record.ExternalID, Field: "name", Reason: "is required"}
	}
	if !record.Price.Valid {
		return nil, &ValidationError{ExternalID: record.ExternalID, Field: "price", Reason: "is required"}
	}
	cost := record.Price.Decimal
	if !cost.IsPositive() {
		return nil, &ValidationError{ExternalID: record.ExternalID, Field: "price", Reason: "must be positive"}
	}

	sell, err := money.ApplyMargin(cost, margin)
	if err != nil {
		return nil, fmt.Errorf("failed to apply margin: %w", err)
	}

	compareMultiplier := opts.CompareMultiplier
	if !compareMultiplier.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		compareMultiplier = DefaultCompareMultiplier
	}
	compare, err := money.ApplyMargin(sell, compareMultiplier)
	if err != nil {
		return nil, fmt.Errorf("failed to derive compare price: %w", err)
	}

	description := strings.TrimSpace(record.Description)
	if description == "" {
		description = name
	}

	category := strings.TrimSpace(record.Category)
	if category == "" {
		category = opts.DefaultCategory
	}
	if category == "" {
		category = DefaultCategory
	}

	weight := decimal.Zero
	if record.Weight.Valid && !record.Weight.Decimal.IsNegative() {
		weight = record.Weight.Decimal
	}

	return &NormalizedProduct{
		Name:           name,
		Description:    description,
		Image:          strings.TrimSpace(record.ImageURL),
		CostPrice:      cost,
		SellPrice:      sell,
		CompareAtPrice: compare,
		Category:       category,
		Weight:         weight,
		ExternalID:     strings.TrimSpace(record.ExternalID),
	}, nil
}
